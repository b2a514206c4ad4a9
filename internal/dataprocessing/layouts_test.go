package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpsroster/internal/pdftable"
	"cpsroster/pkg/contracts/domain"
)

func TestDefaultLayoutsResolve(t *testing.T) {
	registry := DefaultLayouts()

	tests := []struct {
		date     time.Time
		wantName string
		wantOpts pdftable.Options
	}{
		{day0(2012, 7, 11), "transitional-2012-07-11", pdftable.Options{Lattice: false, SkipRows: 0}},
		{day0(2010, 7, 1), "fixed-header-2010-07-01", pdftable.Options{Lattice: true, SkipRows: 1}},
		{day0(2012, 7, 12), "lattice-after-2012-07-11", pdftable.Options{Lattice: true, SkipRows: 0}},
		{day0(2016, 1, 31), "lattice-after-2012-07-11", pdftable.Options{Lattice: true, SkipRows: 0}},
		{day0(2012, 7, 10), "lattice-before-2012-07-11", pdftable.Options{Lattice: true, SkipRows: 1}},
		{day0(2010, 7, 2), "lattice-before-2012-07-11", pdftable.Options{Lattice: true, SkipRows: 1}},
		{day0(2010, 5, 2), "lattice-before-2012-07-11", pdftable.Options{Lattice: true, SkipRows: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			layout, err := registry.Resolve(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, layout.Name)
			assert.Equal(t, tt.wantOpts, layout.Options)
		})
	}
}

func TestLayoutRegistryRegister(t *testing.T) {
	registry := DefaultLayouts()
	registry.Register(Layout{
		Name: "stream-2020",
		From: day0(2020, 1, 1),
	})

	layout, err := registry.Resolve(day0(2020, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "stream-2020", layout.Name)

	layout, err = registry.Resolve(day0(2019, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "lattice-after-2012-07-11", layout.Name)
	assert.Len(t, registry.Layouts(), 5)
}

func TestLayoutRegistryNoMatch(t *testing.T) {
	registry := NewLayoutRegistry(Layout{Name: "only-2015", From: day0(2015, 1, 1), Until: day0(2016, 1, 1)})
	_, err := registry.Resolve(day0(2016, 1, 1))
	assert.Error(t, err)
}

func TestSplitFTESalary(t *testing.T) {
	raw := &domain.RawTable{
		Columns: []string{"Name", "FTE Salary", "Union Affiliation"},
		Rows: [][]string{
			{"Smith, John", "1 $45,000 Local 73 None", "dup"},
			{"Doe, Jane", "0.5 $1,234 None", "dup"},
			{"Roe, Rick", "1", ""},
		},
	}

	require.NoError(t, SplitFTESalary(raw))

	assert.Equal(t, []string{"Name", domain.ColFTE, domain.ColAnnualSalary, domain.ColUnionAffiliation}, raw.Columns)
	assert.Equal(t, [][]string{
		{"Smith, John", "1", "45000", "Local 73"},
		{"Doe, Jane", "0.5", "1234", ""},
		{"Roe, Rick", "1", "", ""},
	}, raw.Rows)
}

func TestSplitFTESalaryMissingColumn(t *testing.T) {
	raw := &domain.RawTable{Columns: []string{"Name"}, Rows: [][]string{{"x"}}}
	assert.Error(t, SplitFTESalary(raw))
}

func TestFixedHeader(t *testing.T) {
	fix := FixedHeader(headerlessColumns)

	raw := &domain.RawTable{Columns: make([]string, 9), Rows: [][]string{make([]string, 9)}}
	require.NoError(t, fix(raw))
	assert.Equal(t, domain.ColPositionNumber, raw.Columns[0])
	assert.Equal(t, domain.ColUnionAffiliation, raw.Columns[8])

	short := &domain.RawTable{Columns: make([]string, 8)}
	assert.Error(t, fix(short))
}
