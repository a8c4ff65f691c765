// Package export projects a view onto a flat table with a fixed, renamed
// column set for an external writer.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/okian/rosterlens/internal/domain/model"
)

var (
	// ErrSchema is the kind behind every SchemaError.
	ErrSchema = errors.New("export schema mismatch")
	// ErrUnknownScope is returned by ForScope.
	ErrUnknownScope = errors.New("unknown export scope")
)

// SchemaError reports a projected column that a record cannot supply.
type SchemaError struct {
	Column string
	Row    int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("export: record at row %d has no column %q", e.Row, e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Column maps a record field (or extra input column) to an output header.
type Column struct {
	Source string
	Header string
}

// Projection is an ordered column set.
type Projection struct {
	Name    string
	Columns []Column
}

// Table is a projected view: a header row plus one row per record.
type Table struct {
	Header []string
	Rows   [][]string
}

// Full is the projection used for the displayed view.
var Full = Projection{
	Name: "displayed",
	Columns: []Column{
		{Source: "name", Header: "name"},
		{Source: "roll_number", Header: "roll_number"},
		{Source: "leetcode_username", Header: "LeetCode Username"},
		{Source: "problems_solved", Header: "Total Solved"},
		{Source: "easy_count", Header: "Easy"},
		{Source: "medium_count", Header: "Medium"},
		{Source: "hard_count", Header: "Hard"},
		{Source: "email", Header: "email"},
		{Source: "phone", Header: "phone"},
		{Source: "profile_found", Header: "Valid Profile"},
	},
}

// InvalidProfiles is the projection used for the invalid-profile report.
var InvalidProfiles = Projection{
	Name: "invalid",
	Columns: []Column{
		{Source: "name", Header: "name"},
		{Source: "roll_number", Header: "roll_number"},
		{Source: "leetcode_username", Header: "leetcode_username"},
		{Source: "email", Header: "email"},
		{Source: "phone", Header: "phone"},
	},
}

// WithExtra returns a copy of p with extra input columns appended under
// their own names.
func (p Projection) WithExtra(columns ...string) Projection {
	cols := make([]Column, 0, len(p.Columns)+len(columns))
	cols = append(cols, p.Columns...)
	for _, c := range columns {
		cols = append(cols, Column{Source: c, Header: c})
	}
	return Projection{Name: p.Name, Columns: cols}
}

// Project renders records through p. Any column a record cannot supply fails
// the whole projection.
func (p Projection) Project(records []model.StudentRecord) (Table, error) {
	t := Table{
		Header: make([]string, len(p.Columns)),
		Rows:   make([][]string, 0, len(records)),
	}
	for i, c := range p.Columns {
		t.Header[i] = c.Header
	}
	for _, r := range records {
		row := make([]string, len(p.Columns))
		for i, c := range p.Columns {
			v, ok := field(r, c.Source)
			if !ok {
				return Table{}, &SchemaError{Column: c.Source, Row: r.Row}
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func field(r model.StudentRecord, name string) (string, bool) {
	switch name {
	case "name":
		return r.Name, true
	case "roll_number":
		return r.RollNumber, true
	case "leetcode_username":
		return r.Username, true
	case "email":
		return r.Email, true
	case "phone":
		return r.Phone, true
	case "problems_solved":
		return strconv.Itoa(r.ProblemsSolved), true
	case "easy_count":
		return strconv.Itoa(r.Easy), true
	case "medium_count":
		return strconv.Itoa(r.Medium), true
	case "hard_count":
		return strconv.Itoa(r.Hard), true
	case "profile_found":
		return strconv.FormatBool(r.ProfileFound), true
	}
	v, ok := r.Extra[name]
	return v, ok
}

// ForScope picks the projection for an export scope name.
func ForScope(scope string) (Projection, error) {
	switch scope {
	case "", Full.Name:
		return Full, nil
	case InvalidProfiles.Name:
		return InvalidProfiles, nil
	}
	return Projection{}, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}
