package operations_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cpsroster/internal/operations"
)

func TestNewConfig(t *testing.T) {
	cfg := operations.NewConfig()

	assert.False(t, cfg.ContinueOnError)
	assert.Equal(t, 3, cfg.RetryConfig.MaxAttempts)
	assert.Equal(t, operations.DefaultDownloadTimeout, cfg.GetStageTimeout(operations.StepIDDownload))
	assert.Equal(t, operations.DefaultReadTimeout, cfg.GetStageTimeout(operations.StepIDRead))
	assert.Equal(t, operations.DefaultStageTimeout, cfg.GetStageTimeout(operations.StepIDClean))
}

func TestConfig_SetStageTimeout(t *testing.T) {
	cfg := &operations.Config{}
	assert.Equal(t, operations.DefaultStageTimeout, cfg.GetStageTimeout(operations.StepIDPersist))

	cfg.SetStageTimeout(operations.StepIDPersist, 5*time.Second)
	assert.Equal(t, 5*time.Second, cfg.GetStageTimeout(operations.StepIDPersist))
}
