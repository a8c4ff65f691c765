package view

import "github.com/okian/rosterlens/internal/domain/model"

// MaxCompare caps how many students a comparison may hold.
const MaxCompare = 5

// Series is one student's difficulty breakdown in a comparison.
type Series struct {
	Row      int    `json:"row"`
	Name     string `json:"name"`
	Username string `json:"leetcode_username"`
	Easy     int    `json:"easy"`
	Medium   int    `json:"medium"`
	Hard     int    `json:"hard"`
	Total    int    `json:"total"`
}

// Compare builds per-student series for 1..MaxCompare records.
func Compare(records []model.StudentRecord) ([]Series, error) {
	switch {
	case len(records) == 0:
		return nil, ErrCompareEmpty
	case len(records) > MaxCompare:
		return nil, ErrCompareTooMany
	}
	out := make([]Series, len(records))
	for i, r := range records {
		out[i] = Series{
			Row:      r.Row,
			Name:     r.Name,
			Username: r.Username,
			Easy:     r.Easy,
			Medium:   r.Medium,
			Hard:     r.Hard,
			Total:    r.ProblemsSolved,
		}
	}
	return out, nil
}

// Summary is the status line over a view.
type Summary struct {
	Total         int     `json:"total"`
	WithUsername  int     `json:"with_username"`
	Valid         int     `json:"valid"`
	Invalid       int     `json:"invalid"`
	ZeroSolved    int     `json:"zero_solved"`
	AverageSolved float64 `json:"average_solved"`
}

// Summarize counts profile states; the average is over valid profiles only.
func Summarize(records []model.StudentRecord) Summary {
	var s Summary
	var solved int
	s.Total = len(records)
	for _, r := range records {
		if r.Eligible() {
			s.WithUsername++
		}
		if ValidProfile(r) {
			s.Valid++
			solved += r.ProblemsSolved
		}
		if InvalidProfile(r) {
			s.Invalid++
		}
		if ZeroSolved(r) {
			s.ZeroSolved++
		}
	}
	if s.Valid > 0 {
		s.AverageSolved = float64(solved) / float64(s.Valid)
	}
	return s
}
