package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cpsroster/internal/infrastructure"
)

const (
	TracerName = "cpsroster.operation"
)

// OperationTracer instruments operation runs with spans and step metrics
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer on the global provider. A nil
// metrics value records nothing.
func NewOperationTracer(metrics *infrastructure.PipelineMetrics) *OperationTracer {
	if metrics == nil {
		metrics = infrastructure.NoopPipelineMetrics()
	}
	return &OperationTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// TraceOperation starts the span covering a whole run
func (t *OperationTracer) TraceOperation(ctx context.Context, operationID string, stepCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.steps", stepCount),
		),
	)
}

// TraceStep starts the span covering one step attempt
func (t *OperationTracer) TraceStep(ctx context.Context, operationID, stepID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
			attribute.Int("step.attempt", attempt),
		),
	)
}

// EndStep records the step duration and closes its span
func (t *OperationTracer) EndStep(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	t.metrics.RecordStep(ctx, stepID, duration.Seconds())
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// EndOperation closes the run span with the final status
func (t *OperationTracer) EndOperation(span trace.Span, status OperationStatusValue, err error) {
	span.SetAttributes(attribute.String("operation.status", string(status)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
