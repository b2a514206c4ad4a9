package operations

import (
	"sync"
	"time"

	"cpsroster/internal/scraper"
	"cpsroster/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of a operation execution
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Data handed from one step to the next
	Context map[string]interface{} `json:"-"`

	// Request parameters
	Config map[string]interface{} `json:"config"`

	// Batch outcome shared by every step of the run
	Report *domain.BatchReport `json:"-"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
		Report:    domain.NewBatchReport(id),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.finish(OperationStatusCompleted, nil)
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.finish(OperationStatusFailed, err)
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.finish(OperationStatusCancelled, nil)
}

func (p *OperationState) finish(status OperationStatusValue, err error) {
	p.mu.Lock()
	now := time.Now()
	p.EndTime = &now
	p.Status = status
	p.Error = err
	p.mu.Unlock()

	p.Report.Update(func(r *domain.BatchReport) {
		r.Finished = now
		if err != nil {
			r.Error = err.Error()
		}
	})
}

// GetStatus returns the operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stageID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetConfig retrieves a configuration value
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a configuration value
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// BoolConfig reads a boolean request parameter, false when unset
func (p *OperationState) BoolConfig(key string) bool {
	v, ok := p.GetConfig(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Links returns the document links found by discovery
func (p *OperationState) Links() []scraper.Link {
	return contextValue[[]scraper.Link](p, ContextKeyLinks)
}

// Documents returns the local document paths selected for reading
func (p *OperationState) Documents() []string {
	return contextValue[[]string](p, ContextKeyDocuments)
}

// Tables returns the normalized tables produced by the read step
func (p *OperationState) Tables() []*domain.NormalizedTable {
	return contextValue[[]*domain.NormalizedTable](p, ContextKeyTables)
}

// Dataset returns the cleaned dataset, nil before the clean step
func (p *OperationState) Dataset() *domain.Dataset {
	return contextValue[*domain.Dataset](p, ContextKeyDataset)
}

// Artifacts returns the files written by the persist step
func (p *OperationState) Artifacts() []string {
	return contextValue[[]string](p, ContextKeyArtifacts)
}

// SnapshotHit reports whether the dataset was loaded from a prior snapshot
func (p *OperationState) SnapshotHit() bool {
	return contextValue[bool](p, ContextKeySnapshotHit)
}

func contextValue[T any](p *OperationState, key string) T {
	var zero T
	v, ok := p.GetContext(key)
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// GetFailedStages returns all failed steps
func (p *OperationState) GetFailedStages() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var failed []*StepState
	for _, step := range p.Steps {
		if step.GetStatus() == StepStatusFailed {
			failed = append(failed, step)
		}
	}
	return failed
}

// IsComplete returns true if all steps are completed or skipped
func (p *OperationState) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		s := step.GetStatus()
		if s == StepStatusPending || s == StepStatusActive {
			return false
		}
	}
	return true
}

// Clone creates a copy of the operation state safe to hand to readers
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Context:   make(map[string]interface{}, len(p.Context)),
		Config:    make(map[string]interface{}, len(p.Config)),
		Report:    p.Report,
		Error:     p.Error,
	}

	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range p.Steps {
		v.mu.RLock()
		stepCopy := &StepState{
			ID:        v.ID,
			Name:      v.Name,
			Status:    v.Status,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
			Progress:  v.Progress,
			Message:   v.Message,
			Error:     v.Error,
			Metadata:  make(map[string]interface{}, len(v.Metadata)),
		}
		for mk, mv := range v.Metadata {
			stepCopy.Metadata[mk] = mv
		}
		v.mu.RUnlock()
		clone.Steps[k] = stepCopy
	}

	for k, v := range p.Context {
		clone.Context[k] = v
	}
	for k, v := range p.Config {
		clone.Config[k] = v
	}

	return clone
}
