package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpsroster/internal/operations"
)

// AssertStepStatus verifies a step has the expected status
func AssertStepStatus(t *testing.T, step *operations.StepState, expected operations.StepStatus) {
	t.Helper()
	require.NotNil(t, step, "step state is nil")
	assert.Equal(t, expected, step.GetStatus(), "step %s status", step.ID)
}

// AssertResponseStep verifies the status of stepID in a response
func AssertResponseStep(t *testing.T, resp *operations.OperationResponse, stepID string, expected operations.StepStatus) {
	t.Helper()
	require.NotNil(t, resp, "response is nil")
	step, ok := resp.Steps[stepID]
	require.True(t, ok, "step %s missing from response", stepID)
	AssertStepStatus(t, step, expected)
}

// AssertStageCompleted verifies a step completed successfully
func AssertStageCompleted(t *testing.T, p *operations.OperationState, stepID string) {
	t.Helper()
	AssertStepStatus(t, p.GetStage(stepID), operations.StepStatusCompleted)
}

// AssertStageSkipped verifies a step was skipped
func AssertStageSkipped(t *testing.T, p *operations.OperationState, stepID string) {
	t.Helper()
	AssertStepStatus(t, p.GetStage(stepID), operations.StepStatusSkipped)
}

// AssertErrorType verifies err is an OperationError of the expected type
func AssertErrorType(t *testing.T, err error, expected operations.ErrorType) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, expected, operations.GetErrorType(err), "error: %v", err)
}

// AssertContextValue verifies a value in the operation context
func AssertContextValue(t *testing.T, state *operations.OperationState, key string, expected interface{}) {
	t.Helper()
	v, ok := state.GetContext(key)
	require.True(t, ok, "context key %s not found", key)
	assert.Equal(t, expected, v)
}
