package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day0(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDocumentDate(t *testing.T) {
	tests := []struct {
		name   string
		want   time.Time
		wantOK bool
	}{
		{"EmployeePositionRoster_07112012.pdf", day0(2012, 7, 11), true},
		{"EmployeePositionRoster_07_11_12.xls", day0(2012, 7, 11), true},
		{"EmployeePositionRoster_07-11-2012.pdf", day0(2012, 7, 11), true},
		{"raw/EmployeePositionRoster_06302015.xls", day0(2015, 6, 30), true},
		{"EmployeePositionRoster07012010.pdf", day0(2010, 7, 1), true},
		{"EmployeePositionRoster__12312019.xlsx", day0(2019, 12, 31), true},
		{"Archive_Roster_Roster_03152011.pdf", day0(2011, 3, 15), true},
		{"EmployeePositionRoster.pdf", time.Time{}, false},
		{"EmployeePositionRoster_July2012.pdf", time.Time{}, false},
		{"budget.pdf", time.Time{}, false},
		{"EmployeePositionRoster_13012012.pdf", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDocumentDate(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestCacheFileName(t *testing.T) {
	assert.Equal(t, "EmployeePositionRoster_07012010.csv", CacheFileName(day0(2010, 7, 1)))
}

func TestReadable(t *testing.T) {
	cutoff := day0(2010, 5, 2)
	assert.False(t, Readable(day0(2010, 5, 1), cutoff))
	assert.True(t, Readable(cutoff, cutoff))
	assert.True(t, Readable(day0(2012, 1, 1), cutoff))

	assert.False(t, IsReadable(day0(2009, 12, 31)))
	assert.True(t, IsReadable(day0(2010, 5, 2)))
}
