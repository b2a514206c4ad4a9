package operations_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpsroster/internal/config"
	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/exporter"
	"cpsroster/internal/files"
	"cpsroster/internal/operations"
	"cpsroster/internal/operations/testutil"
	"cpsroster/internal/scraper"
	"cpsroster/pkg/contracts/domain"
)

type fakeLister struct {
	links []scraper.Link
	err   error
}

func (f *fakeLister) List(ctx context.Context) ([]scraper.Link, error) {
	return f.links, f.err
}

type fakeDownloader struct {
	results []scraper.DownloadResult
	got     []scraper.Link
}

func (f *fakeDownloader) Download(ctx context.Context, links []scraper.Link) ([]scraper.DownloadResult, error) {
	f.got = links
	return f.results, nil
}

type fakeFinder struct {
	names []string
}

func (f *fakeFinder) FindRosterFiles(dir string) ([]files.FileInfo, error) {
	out := make([]files.FileInfo, len(f.names))
	for i, n := range f.names {
		out[i] = files.FileInfo{Path: filepath.Join(dir, n), Name: n}
	}
	return out, nil
}

// fakeReader answers from a table per file name. Unknown names fail
// the date check the way the real reader does.
type fakeReader struct {
	tables map[string]*domain.NormalizedTable
	calls  atomic.Int32
	delay  func(name string) time.Duration
}

func (f *fakeReader) Read(ctx context.Context, path string) domain.ReadResult {
	f.calls.Add(1)
	name := filepath.Base(path)
	if f.delay != nil {
		time.Sleep(f.delay(name))
	}
	doc := domain.SourceDocument{Path: path, Name: name}
	if strings.HasSuffix(name, ".broken.pdf") {
		return domain.ReadResult{Document: doc, Failure: &domain.DocumentFailure{
			Path: path, Stage: domain.StageExtract, Cause: "table extraction failed",
		}}
	}
	table, ok := f.tables[name]
	if !ok {
		return domain.ReadResult{Document: doc, Skipped: true, Failure: &domain.DocumentFailure{
			Path: path, Stage: domain.StageDate, Cause: "no recognized date pattern",
		}}
	}
	return domain.ReadResult{Document: doc, Table: table}
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls int
	frame *domain.Frame
	err   error
}

func (f *fakeCleaner) Clean(ctx context.Context, frame *domain.Frame) (*domain.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.frame = frame
	if f.err != nil {
		return nil, f.err
	}
	return rosterDataset(), nil
}

type fakePublisher struct {
	uploaded []string
}

func (f *fakePublisher) Upload(ctx context.Context, localPaths ...string) error {
	f.uploaded = append(f.uploaded, localPaths...)
	return nil
}

func rosterDataset() *domain.Dataset {
	return &domain.Dataset{
		Columns: []string{
			domain.ColName, domain.ColJobTitle, domain.ColUnitName, domain.ColUnitNumber,
			domain.ColPositionNumber, domain.ColFTE, domain.ColAnnualSalary, domain.ColJobCode,
		},
		Records: []domain.Record{{
			Date:           time.Date(2014, time.September, 30, 0, 0, 0, 0, time.UTC),
			PositionNumber: 101,
			UnitNumber:     2010,
			Numbers:        map[string]float64{domain.ColFTE: 1, domain.ColAnnualSalary: 67500.75, domain.ColJobCode: 8000},
			Text: map[string]string{
				domain.ColName:     "Doe, Jane",
				domain.ColJobTitle: "Regular Teacher",
				domain.ColUnitName: "Lincoln Elementary School",
			},
		}},
	}
}

func rosterTable(date time.Time, position string) *domain.NormalizedTable {
	return &domain.NormalizedTable{
		Date:    date,
		Columns: []string{domain.ColPositionNumber, domain.ColName},
		Rows:    [][]string{{position, "Doe, Jane"}},
	}
}

type harness struct {
	cfg        *config.Config
	paths      *config.Paths
	lister     *fakeLister
	downloader *fakeDownloader
	finder     *fakeFinder
	reader     *fakeReader
	cleaner    *fakeCleaner
	publisher  *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	paths, err := config.NewPaths(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	cfg := config.Default()
	cfg.Processing.Workers = 3

	d1 := time.Date(2014, time.September, 30, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2015, time.March, 31, 0, 0, 0, 0, time.UTC)

	return &harness{
		cfg:   cfg,
		paths: paths,
		lister: &fakeLister{links: []scraper.Link{
			{URL: "https://cps.edu/a.xls", Name: "EmployeePositionRoster_09302014.xls"},
			{URL: "https://cps.edu/b.xls", Name: "EmployeePositionRoster_03312015.xls"},
		}},
		downloader: &fakeDownloader{results: []scraper.DownloadResult{
			{Path: "raw/EmployeePositionRoster_09302014.xls"},
			{Path: "raw/EmployeePositionRoster_03312015.xls", Skipped: true},
			{Path: "raw/x.xls", Err: errors.New("404")},
		}},
		finder: &fakeFinder{names: []string{
			"EmployeePositionRoster_03312015.xls",
			"EmployeePositionRoster_09302014.xls",
			"EmployeeRoster_07112012.broken.pdf",
			"readme.xls",
		}},
		reader: &fakeReader{tables: map[string]*domain.NormalizedTable{
			"EmployeePositionRoster_09302014.xls": rosterTable(d1, "101"),
			"EmployeePositionRoster_03312015.xls": rosterTable(d2, "102"),
		}},
		cleaner:   &fakeCleaner{},
		publisher: &fakePublisher{},
	}
}

func (h *harness) pipeline(t *testing.T) *operations.Manager {
	t.Helper()
	logger, _ := testutil.CreateTestSlogLogger()
	manager, err := operations.NewPipeline(operations.PipelineOptions{
		Config:     h.cfg,
		Paths:      h.paths,
		Lister:     h.lister,
		Downloader: h.downloader,
		Finder:     h.finder,
		Reader:     h.reader,
		Cleaner:    h.cleaner,
		Publisher:  h.publisher,
		Logger:     logger,
	})
	require.NoError(t, err)
	return manager
}

func TestPipeline_StepOrder(t *testing.T) {
	h := newHarness(t)
	h.cfg.Export.Reduce = true

	manager := h.pipeline(t)
	ordered, err := manager.GetRegistry().GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{
		operations.StepIDDiscover, operations.StepIDDownload, operations.StepIDRead,
		operations.StepIDClean, operations.StepIDPersist, operations.StepIDReduce,
		operations.StepIDPublish,
	}, stepIDs(ordered))
}

func TestPipeline_OptionalSteps(t *testing.T) {
	h := newHarness(t)
	logger, _ := testutil.CreateTestSlogLogger()
	manager, err := operations.NewPipeline(operations.PipelineOptions{
		Config: h.cfg, Paths: h.paths,
		Lister: h.lister, Downloader: h.downloader, Finder: h.finder,
		Reader: h.reader, Cleaner: h.cleaner, Logger: logger,
	})
	require.NoError(t, err)

	reg := manager.GetRegistry()
	assert.False(t, reg.Has(operations.StepIDReduce))
	assert.False(t, reg.Has(operations.StepIDPublish))
	assert.Equal(t, 5, reg.Count())
}

func TestPipeline_RequiresConfigAndPaths(t *testing.T) {
	_, err := operations.NewPipeline(operations.PipelineOptions{})
	assert.Error(t, err)
}

func TestPipeline_FullRun(t *testing.T) {
	h := newHarness(t)
	h.cfg.Export.Reduce = true
	h.cfg.Export.SQLitePath = filepath.Join(h.paths.OutputDir, "roster.db")

	resp, err := h.pipeline(t).Execute(context.Background(), operations.OperationRequest{ID: "run-full"})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)

	assert.Equal(t, h.lister.links, h.downloader.got)
	assert.Equal(t, int32(4), h.reader.calls.Load())

	// Join sees only the readable tables, in path order
	require.Equal(t, 1, h.cleaner.calls)
	require.Len(t, h.cleaner.frame.Rows, 2)

	for _, p := range []string{h.paths.SnapshotFile, h.paths.JoinedCSVFile, h.paths.ReducedCSVFile, h.cfg.Export.SQLitePath} {
		assert.FileExists(t, p)
	}
	assert.Equal(t, []string{h.paths.ReducedCSVFile}, h.publisher.uploaded)

	ds, err := exporter.ReadSnapshot(h.paths.SnapshotFile)
	require.NoError(t, err)
	assert.Equal(t, rosterDataset(), ds)

	reduced, err := os.ReadFile(h.paths.ReducedCSVFile)
	require.NoError(t, err)
	assert.NotContains(t, string(reduced), domain.ColJobCode)
	assert.Contains(t, string(reduced), "67500")

	report := resp.Steps[operations.StepIDRead]
	assert.Equal(t, 4, report.Metadata["documents"])
	assert.Equal(t, 2, report.Metadata["tables"])
}

func TestPipeline_BatchReport(t *testing.T) {
	h := newHarness(t)
	manager := h.pipeline(t)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "run-report"})
	require.NoError(t, err)

	report := manager.LatestReport()
	require.NotNil(t, report)
	assert.Equal(t, "run-report", report.RunID)
	assert.Equal(t, 2, report.Discovered)
	assert.Equal(t, 1, report.Downloaded)
	assert.Equal(t, 2, report.Read)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Rows)
	require.Len(t, report.Failures, 2)

	stages := []domain.ReadStage{report.Failures[0].Stage, report.Failures[1].Stage}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	assert.Equal(t, []domain.ReadStage{domain.StageDate, domain.StageExtract}, stages)
}

func TestPipeline_SnapshotShortCircuit(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline(t).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	require.Equal(t, int32(4), h.reader.calls.Load())
	require.Equal(t, 1, h.cleaner.calls)

	info, err := os.Stat(h.paths.SnapshotFile)
	require.NoError(t, err)

	resp, err := h.pipeline(t).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.Equal(t, int32(4), h.reader.calls.Load(), "documents are not read again")
	assert.Equal(t, 1, h.cleaner.calls, "dataset is not cleaned again")
	testutil.AssertResponseStep(t, resp, operations.StepIDClean, operations.StepStatusCompleted)

	after, err := os.Stat(h.paths.SnapshotFile)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime(), "snapshot is left untouched")
	assert.FileExists(t, h.paths.JoinedCSVFile)
}

func TestPipeline_ReplaceRebuilds(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline(t).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	h.cfg.Processing.Replace = true
	_, err = h.pipeline(t).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.Equal(t, int32(8), h.reader.calls.Load())
	assert.Equal(t, 2, h.cleaner.calls)
}

func TestPipeline_CorruptSnapshotRebuilds(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.paths.SnapshotFile, []byte("not brotli"), 0644))

	_, err := h.pipeline(t).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.cleaner.calls)

	_, err = exporter.ReadSnapshot(h.paths.SnapshotFile)
	assert.NoError(t, err)
}

func TestPipeline_CleanErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	h.cleaner.err = apperrors.NewCoercionError(domain.ColUnitNumber, "abc", nil)

	manager := h.pipeline(t)
	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCoercion))

	testutil.AssertResponseStep(t, resp, operations.StepIDClean, operations.StepStatusFailed)
	testutil.AssertResponseStep(t, resp, operations.StepIDPersist, operations.StepStatusSkipped)
	assert.NoFileExists(t, h.paths.SnapshotFile)
	assert.Empty(t, h.publisher.uploaded)
	assert.Contains(t, manager.LatestReport().Error, "COERCION")
}

func TestPipeline_ListingFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.lister.err = apperrors.NewNetworkError("listing request failed", errors.New("no route"))

	manager := h.pipeline(t)
	manager.GetConfig().RetryConfig = testutil.CreateTestConfig().RetryConfig

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
	testutil.AssertResponseStep(t, resp, operations.StepIDDiscover, operations.StepStatusFailed)
	testutil.AssertResponseStep(t, resp, operations.StepIDDownload, operations.StepStatusSkipped)
}

func TestPipeline_Offline(t *testing.T) {
	h := newHarness(t)
	h.cfg.Source.Offline = true

	logger, _ := testutil.CreateTestSlogLogger()
	manager, err := operations.NewPipeline(operations.PipelineOptions{
		Config: h.cfg, Paths: h.paths,
		Finder: h.finder, Reader: h.reader, Cleaner: h.cleaner, Logger: logger,
	})
	require.NoError(t, err)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Offline: using local documents only", resp.Steps[operations.StepIDDiscover].Message)
	assert.Equal(t, "Nothing to download", resp.Steps[operations.StepIDDownload].Message)
	assert.Equal(t, 0, manager.LatestReport().Discovered)
	assert.Equal(t, 1, h.cleaner.calls)
}

func TestReadStep_ResultsFollowPathOrder(t *testing.T) {
	h := newHarness(t)
	dates := []time.Time{
		time.Date(2013, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2014, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2015, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
	names := []string{"a_06302013.xls", "b_06302014.xls", "c_06302015.xls"}
	reader := &fakeReader{
		tables: map[string]*domain.NormalizedTable{},
		// Earlier files finish last
		delay: func(name string) time.Duration {
			return time.Duration(3-strings.Index("abc", name[:1])) * 10 * time.Millisecond
		},
	}
	for i, n := range names {
		reader.tables[n] = rosterTable(dates[i], n)
	}

	step := operations.NewReadStep(operations.ReadStepOptions{
		RawDir:  h.paths.RawDir,
		Workers: 3,
		Replace: true,
		Finder:  &fakeFinder{names: names},
		Reader:  reader,
	})
	state := testutil.CreateTestOperationState("run", step)

	require.NoError(t, step.Validate(state))
	require.NoError(t, step.Execute(context.Background(), state))

	tables := state.Tables()
	require.Len(t, tables, 3)
	for i, tbl := range tables {
		assert.Equal(t, dates[i], tbl.Date)
	}
	assert.Len(t, state.Documents(), 3)
	assert.Equal(t, 3, state.Report.Snapshot().Read)
}

func TestReadStep_Cancelled(t *testing.T) {
	h := newHarness(t)
	step := operations.NewReadStep(operations.ReadStepOptions{
		RawDir:  h.paths.RawDir,
		Workers: 1,
		Replace: true,
		Finder:  h.finder,
		Reader:  h.reader,
	})
	state := testutil.CreateTestOperationState("run", step)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := step.Execute(ctx, state)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPersistStep_Validate(t *testing.T) {
	step := operations.NewPersistStep(operations.PersistStepOptions{CSV: true})
	state := testutil.CreateTestOperationState("run", step)

	assert.ErrorContains(t, step.Validate(state), "no dataset")

	state.SetContext(operations.ContextKeyDataset, rosterDataset())
	assert.ErrorContains(t, step.Validate(state), "without a writer")
}

func TestPublishStep_Validate(t *testing.T) {
	step := operations.NewPublishStep(nil, operations.StepIDPersist, []string{"x.csv"}, nil)
	assert.Error(t, step.Validate(operations.NewOperationState("run")))

	step = operations.NewPublishStep(&fakePublisher{}, operations.StepIDPersist, nil, nil)
	assert.ErrorContains(t, step.Validate(operations.NewOperationState("run")), "nothing to publish")
}
