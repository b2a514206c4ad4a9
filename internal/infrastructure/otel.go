package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"cpsroster/internal/config"
)

const (
	ServiceName = "cps-roster"
	MeterName   = "cpsroster"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeOTel initializes tracing and metrics from the telemetry config.
// Disabled signals fall back to no-op implementations.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
	)

	providers := &OTelProviders{
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if cfg.Metrics {
		registry := promclient.NewRegistry()
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName)
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.Metrics))

	return providers, nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// PipelineMetrics holds the roster pipeline instruments
type PipelineMetrics struct {
	DocumentsTotal metric.Int64Counter
	DownloadsTotal metric.Int64Counter
	RowsJoined     metric.Int64Counter
	RowsDropped    metric.Int64Counter
	StepDuration   metric.Float64Histogram
}

// CreatePipelineMetrics creates the roster pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	documentsTotal, err := meter.Int64Counter(
		"roster_documents_total",
		metric.WithDescription("Roster documents processed, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	downloadsTotal, err := meter.Int64Counter(
		"roster_downloads_total",
		metric.WithDescription("Roster document downloads, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	rowsJoined, err := meter.Int64Counter(
		"roster_rows_joined_total",
		metric.WithDescription("Rows entering the joined-dataset cleaner"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"roster_rows_dropped_total",
		metric.WithDescription("Rows removed by the cleaner, by reason"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"roster_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		DocumentsTotal: documentsTotal,
		DownloadsTotal: downloadsTotal,
		RowsJoined:     rowsJoined,
		RowsDropped:    rowsDropped,
		StepDuration:   stepDuration,
	}, nil
}

// NoopPipelineMetrics returns instruments that record nothing
func NoopPipelineMetrics() *PipelineMetrics {
	m, _ := CreatePipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordDocument counts one processed document
func (m *PipelineMetrics) RecordDocument(ctx context.Context, outcome string) {
	m.DocumentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDownload counts one download attempt
func (m *PipelineMetrics) RecordDownload(ctx context.Context, outcome string) {
	m.DownloadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDropped counts rows removed by the cleaner
func (m *PipelineMetrics) RecordDropped(ctx context.Context, reason string, n int) {
	if n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordStep records a step duration in seconds
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, seconds float64) {
	m.StepDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("step", step)))
}
