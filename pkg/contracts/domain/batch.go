package domain

import (
	"sort"
	"sync"
	"time"
)

// ReadStage names where a per-document read failed
type ReadStage string

const (
	StageDate    ReadStage = "date"
	StageCutoff  ReadStage = "cutoff"
	StageExtract ReadStage = "extract"
)

// DocumentFailure records why a document was excluded from the joined dataset
type DocumentFailure struct {
	Path  string    `json:"path"`
	Date  time.Time `json:"date,omitempty"`
	Stage ReadStage `json:"stage"`
	Cause string    `json:"cause"`
}

// ReadResult is the outcome of reading one document: a table or a failure
type ReadResult struct {
	Document SourceDocument   `json:"document"`
	Table    *NormalizedTable `json:"-"`
	Cached   bool             `json:"cached"`
	Skipped  bool             `json:"skipped"`
	Failure  *DocumentFailure `json:"failure,omitempty"`
}

// OK reports whether the result carries a table
func (r ReadResult) OK() bool {
	return r.Table != nil && r.Failure == nil
}

// BatchReport summarizes a pipeline run
type BatchReport struct {
	mu sync.RWMutex

	RunID      string            `json:"run_id"`
	Started    time.Time         `json:"started"`
	Finished   time.Time         `json:"finished,omitempty"`
	Discovered int               `json:"discovered"`
	Downloaded int               `json:"downloaded"`
	Read       int               `json:"read"`
	Cached     int               `json:"cached"`
	Skipped    int               `json:"skipped"`
	Rows       int               `json:"rows"`
	Failures   []DocumentFailure `json:"failures"`
	Error      string            `json:"error,omitempty"`
}

// NewBatchReport creates an empty report for a run
func NewBatchReport(runID string) *BatchReport {
	return &BatchReport{
		RunID:    runID,
		Started:  time.Now(),
		Failures: []DocumentFailure{},
	}
}

// AddResults folds per-document results into the report
func (b *BatchReport) AddResults(results []ReadResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range results {
		switch {
		case r.Failure != nil && r.Skipped:
			b.Skipped++
			b.Failures = append(b.Failures, *r.Failure)
		case r.Failure != nil:
			b.Failures = append(b.Failures, *r.Failure)
		case r.Cached:
			b.Cached++
		case r.Table != nil:
			b.Read++
		}
	}
	sort.SliceStable(b.Failures, func(i, j int) bool {
		return b.Failures[i].Path < b.Failures[j].Path
	})
}

// Update applies fn under the report lock
func (b *BatchReport) Update(fn func(r *BatchReport)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// Snapshot returns a copy safe to serialize while the run continues
func (b *BatchReport) Snapshot() *BatchReport {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cp := &BatchReport{
		RunID:      b.RunID,
		Started:    b.Started,
		Finished:   b.Finished,
		Discovered: b.Discovered,
		Downloaded: b.Downloaded,
		Read:       b.Read,
		Cached:     b.Cached,
		Skipped:    b.Skipped,
		Rows:       b.Rows,
		Error:      b.Error,
	}
	cp.Failures = append([]DocumentFailure(nil), b.Failures...)
	return cp
}
