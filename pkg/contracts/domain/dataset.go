package domain

import (
	"math"
	"strconv"
	"time"
)

// FrameRow is one row of a joined frame. Index holds the raw date key.
type FrameRow struct {
	Index string
	Cells map[string]string
}

// Get returns the cell value and whether it is non-null.
// A missing key and an empty string are both null.
func (r FrameRow) Get(col string) (string, bool) {
	v, ok := r.Cells[col]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Frame is the row-concatenation of normalized tables before cleaning
type Frame struct {
	Columns []string
	Rows    []FrameRow
}

// HasColumn reports whether any source table carried the column
func (f *Frame) HasColumn(col string) bool {
	for _, c := range f.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Record is one cleaned roster row
type Record struct {
	Date           time.Time          `json:"date"`
	PositionNumber int64              `json:"position_number"`
	UnitNumber     int64              `json:"unit_number"`
	Numbers        map[string]float64 `json:"numbers,omitempty"`
	Text           map[string]string  `json:"text,omitempty"`
}

// Dataset is the cleaned joined roster, sorted by date.
// Columns lists the output columns in order, excluding the date index.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.Records)
}

// IntegerColumns are cast to integers after cleaning
var IntegerColumns = []string{ColPositionNumber, ColUnitNumber}

// NumericColumns are coerced to numbers during cleaning
var NumericColumns = []string{
	ColPositionNumber, ColUnitNumber, ColFTE, ColAnnualSalary,
	ColFTEAnnualSalary, ColAnnualBenefitCost, ColJobCode, ColTotalPositionCost,
}

// IsNumericColumn reports whether col is coerced to a number
func IsNumericColumn(col string) bool {
	for _, c := range NumericColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Value renders a record cell for delimited-text export.
// Missing numbers render empty.
func (r Record) Value(col string) string {
	switch col {
	case ColDate:
		return r.Date.Format("2006-01-02")
	case ColPositionNumber:
		return strconv.FormatInt(r.PositionNumber, 10)
	case ColUnitNumber:
		return strconv.FormatInt(r.UnitNumber, 10)
	}
	if n, ok := r.Numbers[col]; ok {
		if math.IsNaN(n) {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return r.Text[col]
}
