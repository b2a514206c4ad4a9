package testutil

import (
	"context"
	"log/slog"
	"sync"

	"cpsroster/internal/operations"
)

// MockStage is a configurable implementation of operations.Step
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu            sync.Mutex
	executeCalls  int
	validateCalls int
	order         *CallOrder
}

// ID returns the step ID
func (m *MockStage) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStage) Name() string {
	return m.NameValue
}

// GetDependencies returns the step dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute records the call and runs ExecuteFunc
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	order := m.order
	m.mu.Unlock()

	if order != nil {
		order.record(m.IDValue)
	}
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate records the call and runs ValidateFunc
func (m *MockStage) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// GetExecuteCalls returns the number of Execute calls
func (m *MockStage) GetExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// GetValidateCalls returns the number of Validate calls
func (m *MockStage) GetValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// CallOrder records the order in which steps execute
type CallOrder struct {
	mu  sync.Mutex
	ids []string
}

// Track makes every given step record into o
func (o *CallOrder) Track(steps ...*MockStage) {
	for _, s := range steps {
		s.mu.Lock()
		s.order = o
		s.mu.Unlock()
	}
}

func (o *CallOrder) record(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = append(o.ids, id)
}

// IDs returns the executed step IDs in order
func (o *CallOrder) IDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.ids))
	copy(out, o.ids)
	return out
}

// MockSlogHandler captures slog records for assertions
type MockSlogHandler struct {
	mu      *sync.Mutex
	records *[]MockLogRecord
	attrs   []slog.Attr
}

// MockLogRecord is one captured record with its attributes flattened
type MockLogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]interface{}
}

// NewMockSlogHandler creates an empty capturing handler
func NewMockSlogHandler() *MockSlogHandler {
	return &MockSlogHandler{
		mu:      &sync.Mutex{},
		records: &[]MockLogRecord{},
	}
}

// Handle implements slog.Handler
func (h *MockSlogHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]interface{}, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, MockLogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

// Enabled implements slog.Handler
func (h *MockSlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// WithAttrs returns a handler sharing the same record sink
func (h *MockSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &MockSlogHandler{mu: h.mu, records: h.records, attrs: merged}
}

// WithGroup ignores groups
func (h *MockSlogHandler) WithGroup(name string) slog.Handler {
	return h
}

// GetRecords returns all captured records
func (h *MockSlogHandler) GetRecords() []MockLogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]MockLogRecord, len(*h.records))
	copy(out, *h.records)
	return out
}

// GetRecordsByLevel returns the records logged at level
func (h *MockSlogHandler) GetRecordsByLevel(level slog.Level) []MockLogRecord {
	var out []MockLogRecord
	for _, r := range h.GetRecords() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// HasMessage reports whether any record has the given message
func (h *MockSlogHandler) HasMessage(message string) bool {
	for _, r := range h.GetRecords() {
		if r.Message == message {
			return true
		}
	}
	return false
}

// HasAttr reports whether any record carries key with value
func (h *MockSlogHandler) HasAttr(key string, value interface{}) bool {
	for _, r := range h.GetRecords() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// CreateTestSlogLogger returns a logger writing into a capturing handler
func CreateTestSlogLogger() (*slog.Logger, *MockSlogHandler) {
	handler := NewMockSlogHandler()
	return slog.New(handler), handler
}
