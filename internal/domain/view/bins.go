package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/rosterlens/internal/domain/model"
)

// Unbounded marks an open upper end in a Range.
const Unbounded = -1

// Range is an inclusive [Min, Max] band of problems solved. Max may be
// Unbounded on the last range only.
type Range struct {
	Min int
	Max int
}

// Label renders the range as "0", "1-25" or "301+".
func (r Range) Label() string {
	switch {
	case r.Max == Unbounded:
		return strconv.Itoa(r.Min) + "+"
	case r.Min == r.Max:
		return strconv.Itoa(r.Min)
	default:
		return strconv.Itoa(r.Min) + "-" + strconv.Itoa(r.Max)
	}
}

// Bucket is one bar of a distribution.
type Bucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"` // -1 when open
	Count int    `json:"count"`
}

// Bins is a validated, contiguous partition starting at zero.
type Bins struct {
	ranges []Range
}

// NewBins validates ranges: the first starts at 0, each next one starts right
// after the previous ends, and only the last may be open.
func NewBins(ranges []Range) (Bins, error) {
	if len(ranges) == 0 {
		return Bins{}, fmt.Errorf("%w: no ranges", ErrInvalidBins)
	}
	if ranges[0].Min != 0 {
		return Bins{}, fmt.Errorf("%w: first range must start at 0, got %d", ErrInvalidBins, ranges[0].Min)
	}
	for i, r := range ranges {
		last := i == len(ranges)-1
		if r.Max == Unbounded {
			if !last {
				return Bins{}, fmt.Errorf("%w: open range %s must be last", ErrInvalidBins, r.Label())
			}
			continue
		}
		if r.Max < r.Min {
			return Bins{}, fmt.Errorf("%w: range %d-%d is inverted", ErrInvalidBins, r.Min, r.Max)
		}
		if !last && ranges[i+1].Min != r.Max+1 {
			return Bins{}, fmt.Errorf("%w: gap or overlap between %s and %s",
				ErrInvalidBins, r.Label(), ranges[i+1].Label())
		}
	}
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return Bins{ranges: out}, nil
}

// ParseBins reads a layout such as "0,1-25,26-50,301+".
func ParseBins(s string) (Bins, error) {
	parts := strings.Split(s, ",")
	ranges := make([]Range, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r, err := parseRange(p)
		if err != nil {
			return Bins{}, err
		}
		ranges = append(ranges, r)
	}
	return NewBins(ranges)
}

func parseRange(p string) (Range, error) {
	if lo, ok := strings.CutSuffix(p, "+"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || n < 0 {
			return Range{}, fmt.Errorf("%w: bad range %q", ErrInvalidBins, p)
		}
		return Range{Min: n, Max: Unbounded}, nil
	}
	lo, hi, found := strings.Cut(p, "-")
	a, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil || a < 0 {
		return Range{}, fmt.Errorf("%w: bad range %q", ErrInvalidBins, p)
	}
	if !found {
		return Range{Min: a, Max: a}, nil
	}
	b, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad range %q", ErrInvalidBins, p)
	}
	return Range{Min: a, Max: b}, nil
}

// DefaultLayout is the bucket layout used when none is configured.
const DefaultLayout = "0,1-25,26-50,51-100,101-200,201-300,301+"

// DefaultBins returns the parsed DefaultLayout.
func DefaultBins() Bins {
	b, err := ParseBins(DefaultLayout)
	if err != nil {
		panic(err)
	}
	return b
}

// Ranges returns a copy of the configured ranges.
func (b Bins) Ranges() []Range {
	out := make([]Range, len(b.ranges))
	copy(out, b.ranges)
	return out
}

// index finds the bucket for v: the last range whose Min <= v. Values past a
// bounded last range fall into it.
func (b Bins) index(v int) int {
	if v < 0 {
		v = 0
	}
	idx := 0
	for i, r := range b.ranges {
		if r.Min > v {
			break
		}
		idx = i
	}
	return idx
}

// Distribution counts records per bucket by problems solved. Every record
// lands in exactly one bucket, so counts sum to len(records). A bounded last
// bucket that absorbs larger values is reported open, e.g. "26+".
func (b Bins) Distribution(records []model.StudentRecord) []Bucket {
	out := make([]Bucket, len(b.ranges))
	for i, r := range b.ranges {
		out[i] = Bucket{Label: r.Label(), Min: r.Min, Max: r.Max}
	}
	if len(out) == 0 {
		return out
	}
	last := &out[len(out)-1]
	for _, rec := range records {
		out[b.index(rec.ProblemsSolved)].Count++
		if last.Max != Unbounded && rec.ProblemsSolved > last.Max {
			open := Range{Min: last.Min, Max: Unbounded}
			last.Label, last.Max = open.Label(), open.Max
		}
	}
	return out
}
