package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cpsroster/internal/infrastructure"
	"cpsroster/pkg/contracts/domain"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger

	mu         sync.RWMutex
	operations map[string]*OperationState
	last       *OperationState
}

// NewManager creates a new operation manager. Nil arguments get defaults.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	return &Manager{
		registry:   registry,
		config:     config,
		tracer:     tracer,
		logger:     infrastructure.ComponentLogger(logger, "operations"),
		operations: make(map[string]*OperationState),
	}
}

// RegisterStage registers a step with the operation
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the registered steps in dependency order, or the single
// step named by the "step" parameter.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	m.storeOperation(state)
	defer m.removeOperation(req.ID)

	steps, err := m.selectSteps(req)
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperation(ctx, req.ID, len(steps))
	m.logOperationStart(ctx, req)

	state.Start()
	err = m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
	case errors.Is(err, context.Canceled) || GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
		state.Report.Update(func(r *domain.BatchReport) { r.Error = err.Error() })
	default:
		state.Fail(err)
	}

	m.tracer.EndOperation(span, state.GetStatus(), err)
	m.logOperationComplete(ctx, req.ID, state.Duration(), string(state.GetStatus()))

	return m.createResponse(state), err
}

func (m *Manager) selectSteps(req OperationRequest) ([]Step, error) {
	if stepID, ok := req.Parameters[ParamStep].(string); ok && stepID != "" {
		step, err := m.registry.Get(stepID)
		if err != nil {
			return nil, NewValidationError(stepID, err.Error())
		}
		return []Step{step}, nil
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to get dependency order: %w", err)
	}
	return steps, nil
}

// executeSequential runs the steps one by one in the given order
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	single := len(steps) == 1

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID())
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		m.logger.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStage(ctx, state, step, single); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			m.skipDependentStages(state, steps, step.ID())
			if !m.config.ContinueOnError || GetErrorType(err) == ErrorTypeCancellation {
				return err
			}
		}
	}
	return nil
}

// executeStage runs one step with its timeout and retry policy
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, single bool) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", nil)
	}

	if !single {
		if err := m.checkDependencies(state, step); err != nil {
			stepState.Skip(fmt.Sprintf("Dependencies not met: %v", err))
			return NewDependencyError(step.ID(), "", err.Error())
		}
	}

	if err := step.Validate(state); err != nil {
		stepState.Skip(fmt.Sprintf("Validation failed: %v", err))
		return NewValidationError(step.ID(), err.Error())
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := m.config.RetryConfig
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		stepState.Start()
		m.logStageStart(ctx, state.ID, step.ID(), attempt)

		spanCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step.ID(), attempt)
		start := time.Now()
		err := step.Execute(spanCtx, state)
		duration := time.Since(start)
		m.tracer.EndStep(spanCtx, span, step.ID(), duration, err)

		if err == nil {
			stepState.Complete()
			m.logStageComplete(ctx, state.ID, step.ID(), duration)
			return nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) && stepCtx.Err() != nil && ctx.Err() == nil {
			timeoutErr := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(timeoutErr)
			return timeoutErr
		}
		if ctx.Err() != nil {
			stepState.Fail(err)
			return NewCancellationError(step.ID())
		}

		if !IsRetryable(err) || attempt >= retry.MaxAttempts {
			stepState.Fail(err)
			return WrapError(err, step.ID(), "step execution failed")
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "step_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retry.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			timeoutErr := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(timeoutErr)
			return timeoutErr
		}
	}

	stepState.Fail(lastErr)
	return WrapError(lastErr, step.ID(), "step execution failed after retries")
}

// skipDependentStages marks every transitive dependent of the failed step as skipped
func (m *Manager) skipDependentStages(state *OperationState, steps []Step, failedID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedID {
				continue
			}
			stepState := state.GetStage(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				stepState.Skip(fmt.Sprintf("Dependency %s failed", failedID))
				m.skipDependentStages(state, steps, step.ID())
			}
			break
		}
	}
}

// checkDependencies verifies that all dependencies completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return fmt.Errorf("dependency %s not found", dep)
		}
		if s := depState.GetStatus(); s != StepStatusCompleted {
			return fmt.Errorf("dependency %s not completed (status: %s)", dep, s)
		}
	}
	return nil
}

// calculateRetryDelay returns the exponential backoff for the given attempt
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()
	resp := &OperationResponse{
		ID:       snapshot.ID,
		Status:   snapshot.Status,
		Duration: state.Duration(),
		Steps:    snapshot.Steps,
	}
	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}
	return resp
}

// GetOperation retrieves the state of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}
	return state.Clone(), nil
}

// ListOperations returns all active operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Clone())
	}
	return operations
}

// LatestReport returns a copy of the batch report of the running or most
// recent operation, or nil when nothing has run yet.
func (m *Manager) LatestReport() *domain.BatchReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.last == nil {
		return nil
	}
	return m.last.Report.Snapshot()
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
	m.last = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
