package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies how a source document is read
type Format string

const (
	FormatSpreadsheet Format = "spreadsheet"
	FormatPDF         Format = "pdf"
	FormatUnknown     Format = "unknown"
)

// FormatFromPath derives the document format from the file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls", ".xlsx":
		return FormatSpreadsheet
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Canonical column names shared by every normalized table
const (
	ColName              = "name"
	ColJobTitle          = "job title"
	ColJobCode           = "job code"
	ColUnitName          = "unit name"
	ColUnitNumber        = "unit number"
	ColPositionNumber    = "position number"
	ColFTE               = "fte"
	ColAnnualSalary      = "annual salary"
	ColFTEAnnualSalary   = "fte annual salary"
	ColAnnualBenefitCost = "annual benefit cost"
	ColTotalPositionCost = "total position cost"
	ColUnionAffiliation  = "union affiliation"
	ColBudgetCategory    = "budget category"
	ColClsIndc           = "clsindc"
	ColDate              = "date"
)

// SourceDocument is one downloaded roster file
type SourceDocument struct {
	Path   string    `json:"path"`
	Name   string    `json:"name"`
	Format Format    `json:"format"`
	Date   time.Time `json:"date"`
}

// RawTable is the as-extracted content of a source document.
// Every row has exactly len(Columns) cells.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1
func (t *RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// DropColumns removes the named columns, ignoring names that are absent
func (t *RawTable) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	for r, row := range t.Rows {
		out := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				out[j] = row[i]
			}
		}
		t.Rows[r] = out
	}
	t.Columns = cols
}

// SetColumn replaces the named column's values, appending the column if new
func (t *RawTable) SetColumn(name string, values []string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for r := range t.Rows {
			t.Rows[r] = append(t.Rows[r], "")
		}
		idx = len(t.Columns) - 1
	}
	for r := range t.Rows {
		if r < len(values) {
			t.Rows[r][idx] = values[r]
		}
	}
}

// NormalizedTable is a raw table with canonical labels keyed by publication date
type NormalizedTable struct {
	Date    time.Time
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows
func (t *NormalizedTable) Len() int {
	return len(t.Rows)
}
