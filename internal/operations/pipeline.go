package operations

import (
	"fmt"
	"log/slog"

	"cpsroster/internal/config"
	"cpsroster/internal/dataprocessing"
	"cpsroster/internal/exporter"
	"cpsroster/internal/files"
	"cpsroster/internal/infrastructure"
	"cpsroster/internal/publish"
	"cpsroster/internal/scraper"
	"cpsroster/internal/validation"
)

// PipelineOptions carries the collaborators of a roster run. Nil
// collaborators are built from Config.
type PipelineOptions struct {
	Config *config.Config
	Paths  *config.Paths

	Lister     LinkLister
	Downloader DocumentDownloader
	Finder     DocumentFinder
	Reader     DocumentReader
	Cleaner    DatasetCleaner
	Publisher  Publisher

	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
}

// NewPipeline registers the roster steps and returns a manager ready to run them
func NewPipeline(opts PipelineOptions) (*Manager, error) {
	if opts.Config == nil || opts.Paths == nil {
		return nil, fmt.Errorf("pipeline needs a config and paths")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopPipelineMetrics()
	}
	if err := fillDefaults(&opts); err != nil {
		return nil, err
	}

	cfg := opts.Config
	paths := opts.Paths
	writer := exporter.NewCSVWriter(paths)

	steps := []Step{
		NewDiscoverStep(opts.Lister, cfg.Source.Offline, opts.Logger),
		NewDownloadStep(opts.Downloader, opts.Metrics, opts.Logger),
		NewReadStep(ReadStepOptions{
			RawDir:       paths.RawDir,
			SnapshotFile: paths.SnapshotFile,
			Workers:      cfg.Processing.Workers,
			Replace:      cfg.Processing.Replace,
			Finder:       opts.Finder,
			Reader:       opts.Reader,
			Metrics:      opts.Metrics,
			Logger:       opts.Logger,
		}),
		NewCleanStep(opts.Cleaner, opts.Logger),
		NewPersistStep(PersistStepOptions{
			SnapshotFile:  paths.SnapshotFile,
			JoinedCSVFile: paths.JoinedCSVFile,
			SQLitePath:    cfg.Export.SQLitePath,
			CSV:           cfg.Export.CSV,
			Writer:        writer,
			Logger:        opts.Logger,
		}),
	}

	last := StepIDPersist
	published := []string{paths.JoinedCSVFile}
	if cfg.Export.Reduce {
		steps = append(steps, NewReduceStep(paths.ReducedCSVFile, exporter.ReduceOptions{
			JobTitlePrefix: cfg.Export.JobTitlePrefix,
			UnitNameSuffix: cfg.Export.UnitNameSuffix,
		}, writer, opts.Logger))
		last = StepIDReduce
		published = []string{paths.ReducedCSVFile}
	}
	if opts.Publisher != nil {
		steps = append(steps, NewPublishStep(opts.Publisher, last, published, opts.Logger))
	}

	registry := NewRegistry()
	for _, s := range steps {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	if err := registry.ValidateDependencies(); err != nil {
		return nil, err
	}

	return NewManager(registry, NewConfig(), NewOperationTracer(opts.Metrics), opts.Logger), nil
}

func fillDefaults(opts *PipelineOptions) error {
	cfg := opts.Config
	paths := opts.Paths

	if !cfg.Source.Offline && (opts.Lister == nil || opts.Downloader == nil) {
		client := scraper.NewClient(cfg.Source)
		if opts.Lister == nil {
			lister, err := scraper.NewLister(client, cfg.Source.ListingURL, cfg.Source.BaseURL, cfg.Source.LinkFilter)
			if err != nil {
				return err
			}
			opts.Lister = lister
		}
		if opts.Downloader == nil {
			opts.Downloader = scraper.NewDownloader(client, scraper.DownloaderOptions{
				Dir:               paths.RawDir,
				Concurrency:       cfg.Source.DownloadConcurrency,
				RequestsPerSecond: cfg.Source.RequestsPerSecond,
				Validator:         validation.NewFileValidator(opts.Logger),
				Logger:            opts.Logger,
			})
		}
	}

	if opts.Finder == nil {
		opts.Finder = files.NewDiscovery(paths.DataDir)
	}
	if opts.Reader == nil {
		opts.Reader = dataprocessing.NewReader(dataprocessing.ReaderOptions{
			Cache:   exporter.NewCache(paths),
			Cutoff:  cfg.Processing.CutoffDate(),
			Replace: cfg.Processing.Replace,
			Logger:  opts.Logger,
		})
	}
	if opts.Cleaner == nil {
		opts.Cleaner = dataprocessing.NewCleaner(dataprocessing.CleanOptions{
			NormalizeNames: cfg.Processing.NormalizeNames,
		}, opts.Logger, opts.Metrics)
	}
	if opts.Publisher == nil && cfg.Publish.SFTP.Enabled() {
		uploader, err := publish.NewUploader(cfg.Publish.SFTP, opts.Logger)
		if err != nil {
			return err
		}
		opts.Publisher = uploader
	}
	return nil
}
