package operations

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Step is one stage of a roster run. The manager runs steps in dependency
// order and records each one's StepState.
type Step interface {
	ID() string
	Name() string

	// Execute does the step's work against the shared run state
	Execute(ctx context.Context, state *OperationState) error

	// Validate reports whether the step's inputs are present in state
	Validate(state *OperationState) error

	// GetDependencies lists the IDs of steps that must finish first
	GetDependencies() []string
}

// StepStatus is the lifecycle position of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the observable progress of one step within a run
type StepState struct {
	mu        sync.RWMutex           `json:"-"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message"`
	Error     error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState returns a pending step state
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the step active
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
	s.Progress = 0
}

// Complete marks the step done at 100%
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, func() { s.Progress = 100 })
}

// Fail marks the step failed and keeps err as its message
func (s *StepState) Fail(err error) {
	s.finish(StepStatusFailed, func() {
		s.Error = err
		if err != nil {
			s.Message = err.Error()
		}
	})
}

// Skip marks the step skipped for reason
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, func() { s.Message = reason })
}

func (s *StepState) finish(status StepStatus, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = status
	apply()
}

// UpdateProgress sets progress in percent along with a status line
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Progress = progress
	s.Message = message
}

// SetMetadata records a counter or label on the step
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Metadata[key] = value
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration is the elapsed run time, still growing while the step is active
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.StartTime == nil:
		return 0
	case s.EndTime == nil:
		return time.Since(*s.StartTime)
	default:
		return s.EndTime.Sub(*s.StartTime)
	}
}

// BaseStage carries the identity and dependencies shared by every pipeline step
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage creates a base step. Nil dependencies become an empty list.
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStage{id: id, name: name, dependencies: dependencies}
}

func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

func (b *BaseStage) GetDependencies() []string {
	if b == nil {
		return nil
	}
	return b.dependencies
}

// Validate accepts any state. Steps with required inputs override it.
func (b *BaseStage) Validate(state *OperationState) error {
	if b == nil {
		return errors.New("nil step")
	}
	return nil
}
