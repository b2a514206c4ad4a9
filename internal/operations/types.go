package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDDiscover = "discover"
	StepIDDownload = "download"
	StepIDRead     = "read"
	StepIDClean    = "clean"
	StepIDPersist  = "persist"
	StepIDReduce   = "reduce"
	StepIDPublish  = "publish"
)

// Pipeline step names
const (
	StepNameDiscover = "Document Discovery"
	StepNameDownload = "Document Download"
	StepNameRead     = "Table Extraction"
	StepNameClean    = "Join and Clean"
	StepNamePersist  = "Persist Artifacts"
	StepNameReduce   = "Reduced Export"
	StepNamePublish  = "Publish Export"
)

// Context keys for data passed between steps
const (
	ContextKeyLinks       = "links"
	ContextKeyDocuments   = "documents"
	ContextKeyTables      = "tables"
	ContextKeyDataset     = "dataset"
	ContextKeySnapshotHit = "snapshot_hit"
	ContextKeyArtifacts   = "artifacts"
)

// ParamStep selects a single step to run instead of the whole pipeline
const ParamStep = "step"

// Default timeouts
const (
	DefaultStageTimeout    = 30 * time.Minute
	DefaultDownloadTimeout = 60 * time.Minute
	DefaultReadTimeout     = 60 * time.Minute
	DefaultPublishTimeout  = 10 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute a operation
type OperationRequest struct {
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from a operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
