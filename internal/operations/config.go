package operations

import "time"

// Config tunes how the manager drives a run
type Config struct {
	// StageTimeouts bounds each step by ID. Steps not listed get DefaultStageTimeout.
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	RetryConfig RetryConfig `json:"retry_config"`

	// ContinueOnError lets later steps run after a failed one. Roster runs
	// leave it off: every step consumes its predecessor's output.
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the manager defaults for a roster run. Network-bound
// and document-bound steps get longer budgets than the in-memory ones.
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StepIDDownload: DefaultDownloadTimeout,
			StepIDRead:     DefaultReadTimeout,
			StepIDPublish:  DefaultPublishTimeout,
		},
		RetryConfig: NewRetryConfig(),
	}
}

// GetStageTimeout returns the budget for stageID
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if d, ok := c.StageTimeouts[stageID]; ok {
		return d
	}
	return DefaultStageTimeout
}

// SetStageTimeout overrides the budget for stageID
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}
