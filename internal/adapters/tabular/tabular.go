// Package tabular reads roster files and writes export tables in CSV or XLSX.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/rosterlens/internal/domain/export"
	"github.com/okian/rosterlens/internal/domain/model"
)

// Format is a file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Column names recognised on input.
const (
	ColName       = "name"
	ColUsername   = "leetcode_username"
	ColRollNumber = "roll_number"
	ColEmail      = "email"
	ColPhone      = "phone"
)

var requiredColumns = []string{ColName, ColUsername}

const defaultSheet = "Sheet1"

// ParseFormat accepts csv or xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromName derives the format from a file extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return ParseFormat(ext)
}

// ReadRoster parses a roster. Headers are trimmed and lower-cased; name and
// leetcode_username are required, the other known columns default to "".
// Unknown columns are kept in StudentRecord.Extra. Blank rows are skipped.
func ReadRoster(r io.Reader, format Format) ([]model.StudentRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, &IngestionError{Reason: "unsupported format " + string(format), Err: ErrUnsupportedFormat}
	}
	if err != nil {
		return nil, &IngestionError{Reason: "unreadable file", Err: err}
	}
	if len(rows) == 0 {
		return nil, &IngestionError{Reason: "file is empty", Missing: requiredColumns}
	}

	index := headerIndex(rows[0])
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &IngestionError{Reason: "missing required columns", Missing: missing}
	}

	records := make([]model.StudentRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := model.StudentRecord{
			Row:        len(records),
			Name:       cell(row, index, ColName),
			Username:   cell(row, index, ColUsername),
			RollNumber: cell(row, index, ColRollNumber),
			Email:      cell(row, index, ColEmail),
			Phone:      cell(row, index, ColPhone),
		}
		for col := range index {
			if known(col) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[col] = cell(row, index, col)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExtraColumns lists the unknown input columns of records, sorted.
func ExtraColumns(records []model.StudentRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		for col := range r.Extra {
			if !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	slices.Sort(out)
	return out
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func known(col string) bool {
	switch col {
	case ColName, ColUsername, ColRollNumber, ColEmail, ColPhone:
		return true
	}
	return false
}

// WriteTable encodes t in format.
func WriteTable(w io.Writer, t export.Table, format Format) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		return nil
	case FormatXLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func writeXLSX(w io.Writer, t export.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	write := func(rowNum int, values []string) error {
		cellName, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(defaultSheet, cellName, &row)
	}

	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.Rows {
		if err := write(i+2, r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ContentType returns the MIME type for format.
func ContentType(format Format) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
