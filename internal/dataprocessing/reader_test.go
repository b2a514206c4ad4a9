package dataprocessing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpsroster/internal/pdftable"
	"cpsroster/pkg/contracts/domain"
)

type fakeSheets struct {
	table *domain.RawTable
	err   error
	calls int
}

func (f *fakeSheets) ReadSpreadsheet(string) (*domain.RawTable, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return cloneRaw(f.table), nil
}

type fakePDFs struct {
	table *domain.RawTable
	err   error
	calls int
	opts  pdftable.Options
}

func (f *fakePDFs) ExtractPDF(_ string, opts pdftable.Options) (*domain.RawTable, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return cloneRaw(f.table), nil
}

type memCache struct {
	entries map[time.Time]*domain.NormalizedTable
	stored  int
}

func newMemCache() *memCache {
	return &memCache{entries: map[time.Time]*domain.NormalizedTable{}}
}

func (c *memCache) Load(date time.Time) (*domain.NormalizedTable, bool, error) {
	t, ok := c.entries[date]
	return t, ok, nil
}

func (c *memCache) Store(t *domain.NormalizedTable) error {
	c.stored++
	c.entries[t.Date] = t
	return nil
}

func cloneRaw(t *domain.RawTable) *domain.RawTable {
	out := &domain.RawTable{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReader(sheets *fakeSheets, pdfs *fakePDFs, cache TableCache, replace bool) *Reader {
	return NewReader(ReaderOptions{
		Spreadsheets: sheets,
		PDFs:         pdfs,
		Cache:        cache,
		Replace:      replace,
		Logger:       quietLogger(),
	})
}

var sheetTable = &domain.RawTable{
	Columns: []string{"Employee Name", "Dept/Unit Number", "Pos #"},
	Rows:    [][]string{{"Smith, John", "10", "1234"}},
}

func TestReaderSpreadsheet(t *testing.T) {
	sheets := &fakeSheets{table: sheetTable}
	pdfs := &fakePDFs{}
	cache := newMemCache()

	res := newTestReader(sheets, pdfs, cache, false).Read(context.Background(), "raw/EmployeePositionRoster_06302015.xls")

	require.True(t, res.OK())
	assert.False(t, res.Cached)
	assert.Equal(t, domain.FormatSpreadsheet, res.Document.Format)
	assert.Equal(t, []string{domain.ColName, domain.ColUnitNumber, domain.ColPositionNumber}, res.Table.Columns)
	assert.True(t, day0(2015, 6, 30).Equal(res.Table.Date))
	assert.Equal(t, 1, sheets.calls)
	assert.Equal(t, 0, pdfs.calls)
	assert.Equal(t, 1, cache.stored)
}

func TestReaderTransitionalPDF(t *testing.T) {
	pdfs := &fakePDFs{table: &domain.RawTable{
		Columns: []string{"Employee Name", "FTE Salary", "Union Affiliation"},
		Rows:    [][]string{{"Smith, John", "1 $45,000 Local 73", "Local 73"}},
	}}

	res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), "EmployeePositionRoster_07112012.pdf")

	require.True(t, res.OK())
	assert.Equal(t, pdftable.Options{Lattice: false, SkipRows: 0}, pdfs.opts)
	assert.Equal(t, []string{domain.ColName, domain.ColFTE, domain.ColAnnualSalary, domain.ColUnionAffiliation}, res.Table.Columns)
	assert.Equal(t, [][]string{{"Smith, John", "1", "45000", "Local 73"}}, res.Table.Rows)
	assert.NotContains(t, res.Table.Columns, domain.ColFTEAnnualSalary)
}

func TestReaderFTESalaryOutsideTransitionalDate(t *testing.T) {
	pdfs := &fakePDFs{table: &domain.RawTable{
		Columns: []string{"FTE Salary"},
		Rows:    [][]string{{"50000"}},
	}}

	res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), "EmployeePositionRoster_06302014.pdf")

	require.True(t, res.OK())
	assert.Equal(t, pdftable.Options{Lattice: true, SkipRows: 0}, pdfs.opts)
	assert.Equal(t, []string{domain.ColFTEAnnualSalary}, res.Table.Columns)
}

func TestReaderFixedHeaderPDF(t *testing.T) {
	t.Run("nine columns", func(t *testing.T) {
		pdfs := &fakePDFs{table: &domain.RawTable{
			Columns: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
			Rows:    [][]string{{"1", "x", "10", "Unit", "Name", "Title", "100", "1", "None"}},
		}}
		res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), "EmployeePositionRoster_07012010.pdf")
		require.True(t, res.OK())
		assert.Equal(t, pdftable.Options{Lattice: true, SkipRows: 1}, pdfs.opts)
		assert.Equal(t, domain.ColPositionNumber, res.Table.Columns[0])
		assert.Equal(t, domain.ColBudgetCategory, res.Table.Columns[1])
	})

	t.Run("column count mismatch", func(t *testing.T) {
		pdfs := &fakePDFs{table: &domain.RawTable{Columns: []string{"a", "b"}}}
		res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), "EmployeePositionRoster_07012010.pdf")
		require.NotNil(t, res.Failure)
		assert.Equal(t, domain.StageExtract, res.Failure.Stage)
		assert.False(t, res.Skipped)
	})
}

func TestReaderSkips(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		stage domain.ReadStage
	}{
		{"no date", "raw/EmployeePositionRoster_latest.pdf", domain.StageDate},
		{"before cutoff", "raw/EmployeePositionRoster_05012010.pdf", domain.StageCutoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfs := &fakePDFs{table: sheetTable}
			res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), tt.path)

			assert.False(t, res.OK())
			assert.True(t, res.Skipped)
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.stage, res.Failure.Stage)
			assert.Equal(t, tt.path, res.Failure.Path)
			assert.Equal(t, 0, pdfs.calls)
		})
	}
}

func TestReaderExtractionFailure(t *testing.T) {
	pdfs := &fakePDFs{err: errors.New("pdfcpu read: corrupt xref")}
	res := newTestReader(&fakeSheets{}, pdfs, nil, false).Read(context.Background(), "raw/EmployeePositionRoster_06302014.pdf")

	assert.False(t, res.OK())
	assert.False(t, res.Skipped)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "raw/EmployeePositionRoster_06302014.pdf", res.Failure.Path)
	assert.Contains(t, res.Failure.Cause, "corrupt xref")
}

func TestReaderUnknownFormat(t *testing.T) {
	res := newTestReader(&fakeSheets{}, &fakePDFs{}, nil, false).Read(context.Background(), "EmployeePositionRoster_06302014.docx")
	require.NotNil(t, res.Failure)
	assert.Equal(t, domain.StageExtract, res.Failure.Stage)
}

func TestReaderCache(t *testing.T) {
	cached := &domain.NormalizedTable{
		Date:    day0(2015, 6, 30),
		Columns: []string{domain.ColName},
		Rows:    [][]string{{"Cached, Row"}},
	}

	t.Run("hit skips extraction", func(t *testing.T) {
		cache := newMemCache()
		cache.entries[cached.Date] = cached
		sheets := &fakeSheets{table: sheetTable}

		res := newTestReader(sheets, &fakePDFs{}, cache, false).Read(context.Background(), "EmployeePositionRoster_06302015.xls")

		require.True(t, res.OK())
		assert.True(t, res.Cached)
		assert.Same(t, cached, res.Table)
		assert.Equal(t, 0, sheets.calls)
	})

	t.Run("replace re-extracts", func(t *testing.T) {
		cache := newMemCache()
		cache.entries[cached.Date] = cached
		sheets := &fakeSheets{table: sheetTable}

		res := newTestReader(sheets, &fakePDFs{}, cache, true).Read(context.Background(), "EmployeePositionRoster_06302015.xls")

		require.True(t, res.OK())
		assert.False(t, res.Cached)
		assert.Equal(t, 1, sheets.calls)
		assert.Equal(t, 1, cache.stored)
	})
}
