package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cpsroster/internal/config"
	"cpsroster/internal/files"
	"cpsroster/internal/infrastructure"
	"cpsroster/internal/middleware"
	"cpsroster/internal/operations"
	transport "cpsroster/internal/transport/http"
	"cpsroster/pkg/contracts/domain"
)

const (
	staleTempAge    = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// Application wires configuration, observability and the pipeline together
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics
	Runtime       *infrastructure.RuntimeMetrics
	Manager       *operations.Manager
	Server        *transport.Server
}

// Options overrides collaborators, mainly for tests. Zero values build
// the production ones.
type Options struct {
	Logger   *slog.Logger
	Pipeline operations.PipelineOptions
}

// NewApplication creates a new application instance from cfg
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	if removed, err := files.NewManager(paths).RemoveStaleTemps(staleTempAge); err != nil {
		logger.Warn("Failed to clean stale temporary files", slog.String("error", err.Error()))
	} else if removed > 0 {
		logger.Info("Removed stale temporary files", slog.Int("count", removed))
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	runtimeMetrics, err := infrastructure.RegisterRuntimeMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	po := opts.Pipeline
	po.Config = cfg
	po.Paths = paths
	po.Metrics = metrics
	po.Logger = logger
	manager, err := operations.NewPipeline(po)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Runtime:       runtimeMetrics,
		Manager:       manager,
	}

	if cfg.Telemetry.ListenAddr != "" {
		otelMW, err := middleware.NewOTelMiddleware(providers.Tracer, providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create http middleware: %w", err)
		}
		app.Server = transport.NewServer(transport.ServerOptions{
			Addr:    cfg.Telemetry.ListenAddr,
			Runs:    manager,
			Metrics: providers.PrometheusHTTP,
			OTel:    otelMW,
			Logger:  logger,
		})
	}

	return app, nil
}

// Run executes one pipeline run and returns its batch report. The report is
// returned even when the run fails.
func (a *Application) Run(ctx context.Context) (*domain.BatchReport, error) {
	if a.Server != nil {
		a.Server.Start()
	}

	runID := infrastructure.NewRunID()
	ctx = infrastructure.WithTraceID(ctx, runID)

	_, err := a.Manager.Execute(ctx, operations.OperationRequest{ID: runID})
	report := a.Manager.LatestReport()
	if err != nil {
		a.Logger.ErrorContext(ctx, "Pipeline run failed", slog.String("error", err.Error()))
		return report, err
	}

	a.Logger.InfoContext(ctx, "Pipeline run complete",
		slog.Int("read", report.Read),
		slog.Int("cached", report.Cached),
		slog.Int("skipped", report.Skipped),
		slog.Int("failures", len(report.Failures)),
		slog.Int("rows", report.Rows))
	return report, nil
}

// Stop shuts down the status server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Status server shutdown error", slog.String("error", err.Error()))
		}
	}
	if err := a.Runtime.Unregister(); err != nil {
		a.Logger.ErrorContext(ctx, "Failed to stop runtime metrics", slog.String("error", err.Error()))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}
