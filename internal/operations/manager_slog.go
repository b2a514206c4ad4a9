package operations

import (
	"context"
	"log/slog"
	"time"
)

func (m *Manager) logOperationStart(ctx context.Context, req OperationRequest) {
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", req.ID),
		slog.Any("parameters", req.Parameters))
}

func (m *Manager) logOperationComplete(ctx context.Context, operationID string, duration time.Duration, status string) {
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.String("status", status),
		slog.Duration("duration", duration))
}

func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	m.logger.ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID),
		slog.String("error", errString(err)))
}

func (m *Manager) logStageStart(ctx context.Context, operationID, stepID string, attempt int) {
	m.logger.InfoContext(ctx, "step_start",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("attempt", attempt))
}

func (m *Manager) logStageComplete(ctx context.Context, operationID, stepID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "step_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

func (m *Manager) logStageError(ctx context.Context, operationID, stepID string, err error) {
	m.logger.ErrorContext(ctx, "step_error",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error", errString(err)))
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
