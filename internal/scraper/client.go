package scraper

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cpsroster/internal/config"
)

const tracerName = "cpsroster/scraper"

// NewClient builds the HTTP client shared by the lister and the downloader
func NewClient(cfg config.SourceConfig) *resty.Client {
	client := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", config.AppName+"/"+config.AppVersion)

	instrument(client)
	return client
}

// instrument wraps every request in a span and logs the response status
func instrument(client *resty.Client) {
	tracer := otel.Tracer(tracerName)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), "HTTP "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("http.url", req.URL)))
		req.SetContext(ctx)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		span := trace.SpanFromContext(resp.Request.Context())
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
		if resp.IsError() {
			span.SetStatus(codes.Error, resp.Status())
		}
		span.End()

		slog.DebugContext(resp.Request.Context(), "HTTP response",
			slog.String("url", resp.Request.URL),
			slog.Int("status", resp.StatusCode()),
			slog.Duration("duration", resp.Time()))
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		span := trace.SpanFromContext(req.Context())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
	})
}
