// Package view derives displayed subsets of a roster: text search, named
// filters, stable multi-type sorting, distribution bins and comparisons.
//
// Every function is pure. Inputs are never modified; results are fresh slices
// whose records share nothing mutable with the input.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/rosterlens/internal/domain/model"
)

// Predicate selects records.
type Predicate func(model.StudentRecord) bool

// Transform derives one view from another.
type Transform func([]model.StudentRecord) []model.StudentRecord

// Search matches query case-insensitively against name, username, roll number
// and email. A blank query returns every record in order.
func Search(records []model.StudentRecord, query string) []model.StudentRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return model.CloneRecords(records)
	}
	return Where(records, func(r model.StudentRecord) bool {
		return strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Username), q) ||
			strings.Contains(strings.ToLower(r.RollNumber), q) ||
			strings.Contains(strings.ToLower(r.Email), q)
	})
}

// Where keeps the records matching pred, preserving order.
func Where(records []model.StudentRecord, pred Predicate) []model.StudentRecord {
	out := make([]model.StudentRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ValidProfile matches records whose profile lookup succeeded.
func ValidProfile(r model.StudentRecord) bool { return r.ProfileFound }

// InvalidProfile matches records with a username whose lookup failed.
func InvalidProfile(r model.StudentRecord) bool { return r.Eligible() && !r.ProfileFound }

// ZeroSolved matches records with a username and nothing solved.
func ZeroSolved(r model.StudentRecord) bool { return r.Eligible() && r.ProblemsSolved == 0 }

// TopN returns the n records with the most problems solved. Ties keep roster
// order; records never enriched count as zero.
func TopN(records []model.StudentRecord, n int) []model.StudentRecord {
	sorted := model.CloneRecords(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProblemsSolved > sorted[j].ProblemsSolved
	})
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Filter names.
const (
	FilterAll     = "all"
	FilterValid   = "valid"
	FilterInvalid = "invalid"
	FilterTop     = "top"
	FilterZero    = "zero"
)

// ParseFilter resolves a named filter. n is only used by "top".
func ParseFilter(name string, n int) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FilterAll:
		return model.CloneRecords, nil
	case FilterValid:
		return func(rs []model.StudentRecord) []model.StudentRecord { return Where(rs, ValidProfile) }, nil
	case FilterInvalid:
		return func(rs []model.StudentRecord) []model.StudentRecord { return Where(rs, InvalidProfile) }, nil
	case FilterZero:
		return func(rs []model.StudentRecord) []model.StudentRecord { return Where(rs, ZeroSolved) }, nil
	case FilterTop:
		if n <= 0 {
			return nil, fmt.Errorf("%w: top needs a positive n, got %d", ErrUnknownFilter, n)
		}
		return func(rs []model.StudentRecord) []model.StudentRecord { return TopN(rs, n) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

// SortKey names a sortable record field.
type SortKey string

const (
	KeyName           SortKey = "name"
	KeyRollNumber     SortKey = "roll_number"
	KeyUsername       SortKey = "leetcode_username"
	KeyEmail          SortKey = "email"
	KeyPhone          SortKey = "phone"
	KeyProblemsSolved SortKey = "problems_solved"
	KeyEasy           SortKey = "easy_count"
	KeyMedium         SortKey = "medium_count"
	KeyHard           SortKey = "hard_count"
	KeyProfileFound   SortKey = "profile_found"
)

var sortKeys = []SortKey{
	KeyName, KeyRollNumber, KeyUsername, KeyEmail, KeyPhone,
	KeyProblemsSolved, KeyEasy, KeyMedium, KeyHard, KeyProfileFound,
}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range sortKeys {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// ParseDirection accepts asc or desc; empty means asc.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// SortBy orders records stably by key. The comparison key is the pair
// (missing, value) so missing values sort after present ones ascending.
// Desc uses the exact reverse comparator; ties keep their input order in
// both directions.
func SortBy(records []model.StudentRecord, key SortKey, dir Direction) []model.StudentRecord {
	out := model.CloneRecords(records)
	less := func(i, j int) bool { return compare(out[i], out[j], key) < 0 }
	if dir == Desc {
		less = func(i, j int) bool { return compare(out[i], out[j], key) > 0 }
	}
	sort.SliceStable(out, less)
	return out
}

// compare returns -1, 0 or 1 for a against b on key.
func compare(a, b model.StudentRecord, key SortKey) int {
	am, av := sortValue(a, key)
	bm, bv := sortValue(b, key)
	if am != bm {
		if am {
			return 1
		}
		return -1
	}
	if am {
		return 0
	}
	switch x := av.(type) {
	case string:
		return strings.Compare(x, bv.(string))
	case int:
		y := bv.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case bool:
		y := bv.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}

// sortValue extracts the key value and whether it is missing. Empty strings
// are missing; enrichment fields are missing until the record is enriched.
func sortValue(r model.StudentRecord, key SortKey) (bool, any) {
	switch key {
	case KeyName:
		return r.Name == "", r.Name
	case KeyRollNumber:
		return r.RollNumber == "", r.RollNumber
	case KeyUsername:
		return r.Username == "", r.Username
	case KeyEmail:
		return r.Email == "", r.Email
	case KeyPhone:
		return r.Phone == "", r.Phone
	case KeyProblemsSolved:
		return !r.Enriched, r.ProblemsSolved
	case KeyEasy:
		return !r.Enriched, r.Easy
	case KeyMedium:
		return !r.Enriched, r.Medium
	case KeyHard:
		return !r.Enriched, r.Hard
	case KeyProfileFound:
		return !r.Enriched, r.ProfileFound
	}
	return true, nil
}
