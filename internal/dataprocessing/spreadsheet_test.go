package dataprocessing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExcelReaderWorkbook(t *testing.T) {
	tmpDir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Employee Name", "Pos #", "Gross Salary"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Smith, John", 1234, "45000"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Doe, Jane"}))

	// A second sheet is ignored
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "ignore me"))

	path := filepath.Join(tmpDir, "EmployeePositionRoster_06302015.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := NewExcelReader().ReadSpreadsheet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee Name", "Pos #", "Gross Salary"}, table.Columns)
	assert.Equal(t, [][]string{
		{"Smith, John", "1234", "45000"},
		{"Doe, Jane", "", ""},
	}, table.Rows)
}

func TestExcelReaderHTMLDisguisedAsXLS(t *testing.T) {
	html := `<html><body>
<table>
<tr><th>Employee Name</th><th>Pos #</th></tr>
<tr><td>Smith,  John</td><td>1234</td></tr>
<tr><td>Doe, Jane</td></tr>
</table>
</body></html>`
	path := filepath.Join(t.TempDir(), "EmployeePositionRoster_06302011.xls")
	require.NoError(t, os.WriteFile(path, []byte(html), 0644))

	table, err := NewExcelReader().ReadSpreadsheet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee Name", "Pos #"}, table.Columns)
	assert.Equal(t, [][]string{{"Smith, John", "1234"}, {"Doe, Jane", ""}}, table.Rows)
}

func TestExcelReaderLegacyWorkbook(t *testing.T) {
	t.Run("damaged compound file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "EmployeePositionRoster_03312015.xls")
		data := append(append([]byte(nil), oleMagic...), make([]byte, 64)...)
		require.NoError(t, os.WriteFile(path, data, 0644))

		_, err := NewExcelReader().ReadSpreadsheet(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "legacy workbook")
	})
}

type fakeRow struct {
	first int
	cells []string
}

func (r fakeRow) FirstCol() int { return r.first }
func (r fakeRow) LastCol() int  { return len(r.cells) }
func (r fakeRow) Col(i int) string { return r.cells[i] }

func TestLegacyRows(t *testing.T) {
	sheet := map[int]legacyRow{
		0: fakeRow{cells: []string{"Employee Name", "Pos #", "Gross Salary"}},
		1: fakeRow{cells: []string{"Smith, John", "1234", "45000"}},
		3: fakeRow{first: 1, cells: []string{"ignored", "5678"}},
	}
	rows := legacyRows(3, func(i int) legacyRow { return sheet[i] })
	assert.Equal(t, [][]string{
		{"Employee Name", "Pos #", "Gross Salary"},
		{"Smith, John", "1234", "45000"},
		nil,
		{"", "5678"},
	}, rows)

	table, err := tableFromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Smith, John", "1234", "45000"},
		{"", "", ""},
		{"", "5678", ""},
	}, table.Rows)
}

func TestExcelReaderMissingFile(t *testing.T) {
	_, err := NewExcelReader().ReadSpreadsheet(filepath.Join(t.TempDir(), "missing.xls"))
	assert.Error(t, err)
}

func TestTableFromRows(t *testing.T) {
	table, err := tableFromRows([][]string{
		{"a", "b"},
		{"1", "2", "3"},
		{"4"},
		{"", " "},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "unnamed: 2"}, table.Columns)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "", ""}}, table.Rows)

	_, err = tableFromRows([][]string{{""}})
	assert.Error(t, err)
}
