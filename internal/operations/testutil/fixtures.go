package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/operations"
)

// CreateTestConfig returns a configuration with short timeouts and delays
func CreateTestConfig() *operations.Config {
	cfg := operations.NewConfig()
	cfg.RetryConfig = operations.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
	for _, id := range []string{
		operations.StepIDDiscover, operations.StepIDDownload, operations.StepIDRead,
		operations.StepIDClean, operations.StepIDPersist, operations.StepIDReduce,
		operations.StepIDPublish,
	} {
		cfg.SetStageTimeout(id, 2*time.Second)
	}
	return cfg
}

// CreateTestOperationState returns a state with a pending entry for each step
func CreateTestOperationState(id string, steps ...operations.Step) *operations.OperationState {
	state := operations.NewOperationState(id)
	for _, s := range steps {
		state.SetStage(s.ID(), operations.NewStepState(s.ID(), s.Name()))
	}
	return state
}

// CreateSuccessfulStage creates a step that always succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if s := state.GetStage(id); s != nil {
				s.UpdateProgress(100, "Completed")
			}
			return nil
		},
	}
}

// CreateFailingStage creates a step that always fails with err
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	if err == nil {
		err = errors.New("step failed")
	}
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateFlakyNetworkStage creates a step whose first failCount attempts
// fail with a network error
func CreateFlakyNetworkStage(id, name string, failCount int, deps ...string) *MockStage {
	var attempts int32
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if int(atomic.AddInt32(&attempts, 1)) <= failCount {
				return apperrors.NewNetworkError("listing page unavailable", errors.New("connection reset"))
			}
			return nil
		},
	}
}

// CreateSlowStage creates a step that blocks for duration or until cancelled
func CreateSlowStage(id, name string, duration time.Duration, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			select {
			case <-time.After(duration):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// CreateValidationFailingStage creates a step that fails validation
func CreateValidationFailingStage(id, name string, validationErr error, deps ...string) *MockStage {
	if validationErr == nil {
		validationErr = errors.New("validation failed")
	}
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ValidateFunc: func(state *operations.OperationState) error {
			return validationErr
		},
	}
}

// CreateContextWriterStage creates a step that stores value under key
func CreateContextWriterStage(id, name, key string, value interface{}, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			state.SetContext(key, value)
			return nil
		},
	}
}
