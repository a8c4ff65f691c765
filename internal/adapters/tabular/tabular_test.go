package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/okian/rosterlens/internal/domain/export"
	"github.com/okian/rosterlens/internal/domain/model"
)

func TestReadRoster_CSV(t *testing.T) {
	in := "\ufeff Name ,LeetCode_Username,Roll_Number,Section\n" +
		"Asha Rao, asha ,CS101,B\n" +
		",,,\n" +
		"Ben Ode,,CS102,A\n" +
		"Numeric,12345\n"

	recs, err := ReadRoster(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, model.StudentRecord{
		Row: 0, Name: "Asha Rao", Username: "asha", RollNumber: "CS101",
		Extra: map[string]string{"section": "B"},
	}, recs[0])
	assert.Equal(t, 1, recs[1].Row)
	assert.Empty(t, recs[1].Username)
	assert.Equal(t, "", recs[1].Email)
	assert.Equal(t, "12345", recs[2].Username)
	assert.Equal(t, "", recs[2].Extra["section"])
	assert.Equal(t, []string{"section"}, ExtraColumns(recs))
}

func TestReadRoster_MissingRequiredColumns(t *testing.T) {
	_, err := ReadRoster(strings.NewReader("name,email\nA,a@x\n"), FormatCSV)

	var ie *IngestionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{ColUsername}, ie.Missing)
	assert.ErrorIs(t, err, ErrIngestion)
	assert.Contains(t, err.Error(), "leetcode_username")
}

func TestReadRoster_EmptyAndBroken(t *testing.T) {
	_, err := ReadRoster(strings.NewReader(""), FormatCSV)
	assert.ErrorIs(t, err, ErrIngestion)

	_, err = ReadRoster(strings.NewReader("name,leetcode_username\n\"unterminated,x\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrIngestion)

	_, err = ReadRoster(strings.NewReader("not a workbook"), FormatXLSX)
	assert.ErrorIs(t, err, ErrIngestion)

	_, err = ReadRoster(strings.NewReader("x"), Format("ods"))
	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadRoster_HeaderOnly(t *testing.T) {
	recs, err := ReadRoster(strings.NewReader("name,leetcode_username\n"), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadRoster_XLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"name", "leetcode_username", "email", "phone"},
		{"Chen Li", "chenli", "chen@uni.edu", "555-0101"},
		{"Dev Kumar", "ghost"},
	}
	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	recs, err := ReadRoster(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "chenli", recs[0].Username)
	assert.Equal(t, "555-0101", recs[0].Phone)
	assert.Equal(t, "", recs[1].Phone)
	assert.Equal(t, "", recs[1].RollNumber)
}

func TestWriteTable_RoundTrip(t *testing.T) {
	table := export.Table{
		Header: []string{"name", "LeetCode Username", "Total Solved"},
		Rows:   [][]string{{"A, Jr.", "a1", "5"}, {"B", "", "0"}},
	}

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTable(&buf, table, FormatCSV))
		assert.Equal(t, "name,LeetCode Username,Total Solved\n\"A, Jr.\",a1,5\nB,,0\n", buf.String())
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTable(&buf, table, FormatXLSX))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		got, err := f.GetRows("Sheet1")
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"name", "LeetCode Username", "Total Solved"},
			{"A, Jr.", "a1", "5"},
			{"B", "", "0"},
		}, got)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.ErrorIs(t, WriteTable(&bytes.Buffer{}, table, Format("pdf")), ErrUnsupportedFormat)
	})
}

func TestFormats(t *testing.T) {
	f, err := FormatFromName("students.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromName("/tmp/class.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromName("roster")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseFormat("xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.Contains(t, ContentType(FormatXLSX), "spreadsheetml")
	assert.Contains(t, ContentType(FormatCSV), "text/csv")
}
