package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type traceKey struct{}

// NewRunID returns a fresh identifier for a pipeline run. It doubles as the
// trace ID of every log record the run emits.
func NewRunID() string {
	return uuid.NewString()
}

// WithTraceID returns a copy of ctx carrying traceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// GetTraceID returns the trace ID stored in ctx, or ""
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// EnsureTraceID attaches a new run ID unless ctx already has a trace ID
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, NewRunID())
}

// ComponentLogger scopes logger to one pipeline component
func ComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", component))
}
