package dataprocessing

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"cpsroster/pkg/contracts/domain"
)

// oleMagic opens every legacy BIFF (.xls 97-2003) workbook
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ExcelReader reads the first sheet of a workbook. OOXML workbooks go through
// excelize and legacy BIFF workbooks through extrame/xls. Files published with
// a spreadsheet extension but holding an HTML table are read as HTML.
type ExcelReader struct{}

// NewExcelReader creates a spreadsheet reader
func NewExcelReader() *ExcelReader {
	return &ExcelReader{}
}

// ReadSpreadsheet returns the first sheet with its first row as the header
func (r *ExcelReader) ReadSpreadsheet(path string) (*domain.RawTable, error) {
	head, err := sniff(path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch {
	case bytes.HasPrefix(head, oleMagic):
		rows, err = readLegacyWorkbook(path)
	case isHTML(head):
		rows, err = readHTMLTable(path)
	default:
		rows, err = readWorkbook(path)
	}
	if err != nil {
		return nil, err
	}
	return tableFromRows(rows)
}

func sniff(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := bufio.NewReader(f).Peek(512)
	if len(head) == 0 && err != nil {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	return head, nil
}

func isHTML(head []byte) bool {
	head = bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))
	head = bytes.TrimLeft(head, " \t\r\n")
	lower := bytes.ToLower(head)
	for _, prefix := range []string{"<!doctype html", "<html", "<table", "<meta", "<?xml"} {
		if bytes.HasPrefix(lower, []byte(prefix)) {
			return prefix != "<?xml" || bytes.Contains(lower, []byte("<html"))
		}
	}
	return false
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// legacyRow is the part of a BIFF row the reader needs
type legacyRow interface {
	FirstCol() int
	LastCol() int
	Col(i int) string
}

func readLegacyWorkbook(path string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to read legacy workbook: %v", r)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("compound file holds no workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	return legacyRows(int(sheet.MaxRow), func(i int) legacyRow {
		if row := sheet.Row(i); row != nil {
			return row
		}
		return nil
	}), nil
}

// legacyRows reads rows 0 through maxRow. Missing rows come back empty so
// row positions are kept.
func legacyRows(maxRow int, row func(int) legacyRow) [][]string {
	rows := make([][]string, 0, maxRow+1)
	for i := 0; i <= maxRow; i++ {
		r := row(i)
		if r == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, max(r.LastCol(), 0))
		for j := max(r.FirstCol(), 0); j < len(cells); j++ {
			cells[j] = r.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows
}

func readHTMLTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML table: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table element found")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.Join(strings.Fields(cell.Text()), " "))
		})
		rows = append(rows, row)
	})
	return rows, nil
}

// tableFromRows splits off the header, pads short rows and drops trailing
// empty rows. Cells beyond the header get positional labels.
func tableFromRows(rows [][]string) (*domain.RawTable, error) {
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	header := append([]string(nil), rows[0]...)
	for _, row := range rows[1:] {
		for len(header) < len(row) {
			header = append(header, fmt.Sprintf("unnamed: %d", len(header)))
		}
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		padded := make([]string, len(header))
		copy(padded, row)
		data = append(data, padded)
	}
	return &domain.RawTable{Columns: header, Rows: data}, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
