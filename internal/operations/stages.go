package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"cpsroster/internal/dataprocessing"
	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/exporter"
	"cpsroster/internal/files"
	"cpsroster/internal/infrastructure"
	"cpsroster/internal/scraper"
	"cpsroster/pkg/contracts/domain"
)

// LinkLister finds the roster document links on the listing page
type LinkLister interface {
	List(ctx context.Context) ([]scraper.Link, error)
}

// DocumentDownloader fetches documents into the raw directory
type DocumentDownloader interface {
	Download(ctx context.Context, links []scraper.Link) ([]scraper.DownloadResult, error)
}

// DocumentFinder lists the roster documents present on disk
type DocumentFinder interface {
	FindRosterFiles(dir string) ([]files.FileInfo, error)
}

// DocumentReader turns one document into a normalized table or a failure
type DocumentReader interface {
	Read(ctx context.Context, path string) domain.ReadResult
}

// DatasetCleaner cleans the joined frame into the final dataset
type DatasetCleaner interface {
	Clean(ctx context.Context, frame *domain.Frame) (*domain.Dataset, error)
}

// Publisher ships finished exports elsewhere
type Publisher interface {
	Upload(ctx context.Context, localPaths ...string) error
}

// DiscoverStep lists the roster documents available upstream
type DiscoverStep struct {
	BaseStage
	lister  LinkLister
	offline bool
	logger  *slog.Logger
}

// NewDiscoverStep creates the discovery step. In offline mode no request is
// made and only documents already on disk are processed.
func NewDiscoverStep(lister LinkLister, offline bool, logger *slog.Logger) *DiscoverStep {
	return &DiscoverStep{
		BaseStage: NewBaseStage(StepIDDiscover, StepNameDiscover, nil),
		lister:    lister,
		offline:   offline,
		logger:    stepLogger(logger, StepIDDiscover),
	}
}

// Validate requires a lister unless running offline
func (s *DiscoverStep) Validate(state *OperationState) error {
	if !s.offline && s.lister == nil {
		return fmt.Errorf("no link lister configured")
	}
	return nil
}

// Execute stores the discovered links on the state
func (s *DiscoverStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	if s.offline {
		state.SetContext(ContextKeyLinks, []scraper.Link{})
		stepState.UpdateProgress(100, "Offline: using local documents only")
		s.logger.InfoContext(ctx, "Offline mode, skipping listing")
		return nil
	}

	links, err := s.lister.List(ctx)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyLinks, links)
	state.Report.Update(func(r *domain.BatchReport) { r.Discovered = len(links) })
	stepState.SetMetadata("links", len(links))
	stepState.UpdateProgress(100, fmt.Sprintf("Found %d documents", len(links)))

	s.logger.InfoContext(ctx, "Discovered roster documents", slog.Int("links", len(links)))
	return nil
}

// DownloadStep fetches every discovered document not already on disk
type DownloadStep struct {
	BaseStage
	downloader DocumentDownloader
	metrics    *infrastructure.PipelineMetrics
	logger     *slog.Logger
}

// NewDownloadStep creates the download step
func NewDownloadStep(downloader DocumentDownloader, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *DownloadStep {
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &DownloadStep{
		BaseStage:  NewBaseStage(StepIDDownload, StepNameDownload, []string{StepIDDiscover}),
		downloader: downloader,
		metrics:    metrics,
		logger:     stepLogger(logger, StepIDDownload),
	}
}

// Execute downloads the links found by discovery. Individual download
// failures are logged and counted; only cancellation fails the step.
func (s *DownloadStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	links := state.Links()
	if len(links) == 0 || s.downloader == nil {
		stepState.UpdateProgress(100, "Nothing to download")
		return nil
	}

	results, err := s.downloader.Download(ctx, links)
	if err != nil {
		return err
	}

	var fetched, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			s.metrics.RecordDownload(ctx, "failed")
		case r.Skipped:
			skipped++
			s.metrics.RecordDownload(ctx, "skipped")
		default:
			fetched++
			s.metrics.RecordDownload(ctx, "fetched")
		}
	}

	state.Report.Update(func(r *domain.BatchReport) { r.Downloaded = fetched })
	stepState.SetMetadata("fetched", fetched)
	stepState.SetMetadata("skipped", skipped)
	stepState.SetMetadata("failed", failed)
	stepState.UpdateProgress(100, fmt.Sprintf("Fetched %d, skipped %d, failed %d", fetched, skipped, failed))

	s.logger.InfoContext(ctx, "Downloads finished",
		slog.Int("fetched", fetched),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed))
	return nil
}

// ReadStepOptions configures the read step
type ReadStepOptions struct {
	RawDir       string
	SnapshotFile string
	Workers      int
	Replace      bool
	Finder       DocumentFinder
	Reader       DocumentReader
	Metrics      *infrastructure.PipelineMetrics
	Logger       *slog.Logger
}

// ReadStep reads every local document into a normalized table
type ReadStep struct {
	BaseStage
	opts   ReadStepOptions
	logger *slog.Logger
}

// NewReadStep creates the read step
func NewReadStep(opts ReadStepOptions) *ReadStep {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopPipelineMetrics()
	}
	return &ReadStep{
		BaseStage: NewBaseStage(StepIDRead, StepNameRead, []string{StepIDDownload}),
		opts:      opts,
		logger:    stepLogger(opts.Logger, StepIDRead),
	}
}

// Validate requires a finder and a reader
func (s *ReadStep) Validate(state *OperationState) error {
	if s.opts.Finder == nil || s.opts.Reader == nil {
		return fmt.Errorf("document finder and reader are required")
	}
	return nil
}

// Execute reads documents on a bounded worker pool. Each worker fills only
// its own result slot; results are folded into the report after the barrier.
// A prior snapshot short-circuits reading unless Replace is set.
func (s *ReadStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	if !s.opts.Replace && s.opts.SnapshotFile != "" {
		ds, err := exporter.ReadSnapshot(s.opts.SnapshotFile)
		switch {
		case err == nil:
			state.SetContext(ContextKeyDataset, ds)
			state.SetContext(ContextKeySnapshotHit, true)
			state.Report.Update(func(r *domain.BatchReport) { r.Rows = ds.Len() })
			stepState.UpdateProgress(100, "Loaded dataset from snapshot")
			s.logger.InfoContext(ctx, "Using existing snapshot",
				slog.String("path", s.opts.SnapshotFile),
				slog.Int("rows", ds.Len()))
			return nil
		case errors.Is(err, os.ErrNotExist):
		default:
			s.logger.WarnContext(ctx, "Snapshot unreadable, rebuilding",
				slog.String("path", s.opts.SnapshotFile),
				slog.String("error", err.Error()))
		}
	}

	found, err := s.opts.Finder.FindRosterFiles(s.opts.RawDir)
	if err != nil {
		return apperrors.NewStorageError("failed to list raw documents", err).WithContext("dir", s.opts.RawDir)
	}
	paths := files.Paths(found)
	state.SetContext(ContextKeyDocuments, paths)

	results := make([]domain.ReadResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.opts.Reader.Read(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	state.Report.AddResults(results)

	tables := make([]*domain.NormalizedTable, 0, len(results))
	for _, r := range results {
		s.opts.Metrics.RecordDocument(ctx, outcome(r))
		if r.OK() {
			tables = append(tables, r.Table)
		}
	}
	state.SetContext(ContextKeyTables, tables)

	stepState.SetMetadata("documents", len(paths))
	stepState.SetMetadata("tables", len(tables))
	stepState.UpdateProgress(100, fmt.Sprintf("Read %d of %d documents", len(tables), len(paths)))

	s.logger.InfoContext(ctx, "Documents read",
		slog.Int("documents", len(paths)),
		slog.Int("tables", len(tables)),
		slog.Int("failures", len(paths)-len(tables)))
	return nil
}

func outcome(r domain.ReadResult) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Failure != nil:
		return "failed"
	case r.Cached:
		return "cached"
	default:
		return "read"
	}
}

// CleanStep joins the tables and cleans the combined frame
type CleanStep struct {
	BaseStage
	cleaner DatasetCleaner
	logger  *slog.Logger
}

// NewCleanStep creates the clean step
func NewCleanStep(cleaner DatasetCleaner, logger *slog.Logger) *CleanStep {
	return &CleanStep{
		BaseStage: NewBaseStage(StepIDClean, StepNameClean, []string{StepIDRead}),
		cleaner:   cleaner,
		logger:    stepLogger(logger, StepIDClean),
	}
}

// Validate requires a cleaner
func (s *CleanStep) Validate(state *OperationState) error {
	if s.cleaner == nil {
		return fmt.Errorf("no cleaner configured")
	}
	return nil
}

// Execute produces the dataset. Any cleaning error is fatal for the run.
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	if state.SnapshotHit() {
		stepState.UpdateProgress(100, "Dataset loaded from snapshot")
		return nil
	}

	frame := dataprocessing.Join(state.Tables())

	ds, err := s.cleaner.Clean(ctx, frame)
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyDataset, ds)
	state.Report.Update(func(r *domain.BatchReport) { r.Rows = ds.Len() })
	stepState.SetMetadata("joined_rows", len(frame.Rows))
	stepState.SetMetadata("rows", ds.Len())
	stepState.UpdateProgress(100, fmt.Sprintf("Cleaned %d rows", ds.Len()))

	s.logger.InfoContext(ctx, "Dataset cleaned",
		slog.Int("joined_rows", len(frame.Rows)),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns)))
	return nil
}

// PersistStepOptions configures the persist step
type PersistStepOptions struct {
	SnapshotFile  string
	JoinedCSVFile string
	SQLitePath    string
	CSV           bool
	Writer        *exporter.CSVWriter
	Logger        *slog.Logger
}

// PersistStep writes the snapshot and the configured exports
type PersistStep struct {
	BaseStage
	opts   PersistStepOptions
	logger *slog.Logger
}

// NewPersistStep creates the persist step
func NewPersistStep(opts PersistStepOptions) *PersistStep {
	return &PersistStep{
		BaseStage: NewBaseStage(StepIDPersist, StepNamePersist, []string{StepIDClean}),
		opts:      opts,
		logger:    stepLogger(opts.Logger, StepIDPersist),
	}
}

// Validate requires a dataset and a CSV writer when CSV export is on
func (s *PersistStep) Validate(state *OperationState) error {
	if state.Dataset() == nil {
		return fmt.Errorf("no dataset to persist")
	}
	if s.opts.CSV && s.opts.Writer == nil {
		return fmt.Errorf("csv export enabled without a writer")
	}
	return nil
}

// Execute writes the artifacts. The snapshot is left alone when it was
// the source of the dataset.
func (s *PersistStep) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())
	ds := state.Dataset()
	var artifacts []string

	if !state.SnapshotHit() {
		if err := exporter.WriteSnapshot(s.opts.SnapshotFile, ds); err != nil {
			return apperrors.NewStorageError("failed to write snapshot", err).WithContext("path", s.opts.SnapshotFile)
		}
		artifacts = append(artifacts, s.opts.SnapshotFile)
	}

	if s.opts.CSV {
		if err := s.opts.Writer.WriteDataset(s.opts.JoinedCSVFile, ds); err != nil {
			return apperrors.NewStorageError("failed to write dataset csv", err).WithContext("path", s.opts.JoinedCSVFile)
		}
		artifacts = append(artifacts, s.opts.JoinedCSVFile)
	}

	if s.opts.SQLitePath != "" {
		if err := exporter.WriteSQLite(ctx, s.opts.SQLitePath, ds); err != nil {
			return apperrors.NewStorageError("failed to write sqlite export", err).WithContext("path", s.opts.SQLitePath)
		}
		artifacts = append(artifacts, s.opts.SQLitePath)
	}

	state.SetContext(ContextKeyArtifacts, artifacts)
	stepState.SetMetadata("artifacts", artifacts)
	stepState.UpdateProgress(100, fmt.Sprintf("Wrote %d artifacts", len(artifacts)))

	for _, a := range artifacts {
		s.logger.InfoContext(ctx, "Artifact written", slog.String("path", a))
	}
	return nil
}

// ReduceStep writes the size-reduced export next to the joined one
type ReduceStep struct {
	BaseStage
	path    string
	options exporter.ReduceOptions
	writer  *exporter.CSVWriter
	logger  *slog.Logger
}

// NewReduceStep creates the reduce step writing to path
func NewReduceStep(path string, options exporter.ReduceOptions, writer *exporter.CSVWriter, logger *slog.Logger) *ReduceStep {
	return &ReduceStep{
		BaseStage: NewBaseStage(StepIDReduce, StepNameReduce, []string{StepIDPersist}),
		path:      path,
		options:   options,
		writer:    writer,
		logger:    stepLogger(logger, StepIDReduce),
	}
}

// Validate requires a dataset and a writer
func (s *ReduceStep) Validate(state *OperationState) error {
	if state.Dataset() == nil {
		return fmt.Errorf("no dataset to reduce")
	}
	if s.writer == nil {
		return fmt.Errorf("no csv writer configured")
	}
	return nil
}

// Execute reduces a copy of the dataset and exports it
func (s *ReduceStep) Execute(ctx context.Context, state *OperationState) error {
	reduced := exporter.Reduce(state.Dataset(), s.options)
	if err := s.writer.WriteDataset(s.path, reduced); err != nil {
		return apperrors.NewStorageError("failed to write reduced csv", err).WithContext("path", s.path)
	}

	state.SetContext(ContextKeyArtifacts, append(state.Artifacts(), s.path))
	state.GetStage(s.ID()).UpdateProgress(100, "Reduced export written")

	s.logger.InfoContext(ctx, "Reduced export written",
		slog.String("path", s.path),
		slog.Int("columns", len(reduced.Columns)))
	return nil
}

// PublishStep uploads the distributable export
type PublishStep struct {
	BaseStage
	publisher Publisher
	paths     []string
	logger    *slog.Logger
}

// NewPublishStep creates the publish step. It runs after dependsOn and
// uploads the given local files.
func NewPublishStep(publisher Publisher, dependsOn string, paths []string, logger *slog.Logger) *PublishStep {
	return &PublishStep{
		BaseStage: NewBaseStage(StepIDPublish, StepNamePublish, []string{dependsOn}),
		publisher: publisher,
		paths:     paths,
		logger:    stepLogger(logger, StepIDPublish),
	}
}

// Validate requires a publisher and something to upload
func (s *PublishStep) Validate(state *OperationState) error {
	if s.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}
	if len(s.paths) == 0 {
		return fmt.Errorf("nothing to publish")
	}
	return nil
}

// Execute uploads the files
func (s *PublishStep) Execute(ctx context.Context, state *OperationState) error {
	if err := s.publisher.Upload(ctx, s.paths...); err != nil {
		return err
	}
	state.GetStage(s.ID()).UpdateProgress(100, fmt.Sprintf("Published %d files", len(s.paths)))
	s.logger.InfoContext(ctx, "Exports published", slog.Int("files", len(s.paths)))
	return nil
}

func stepLogger(logger *slog.Logger, stepID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("step", stepID))
}
