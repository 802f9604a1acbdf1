package modular

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepError_Is(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{kind: ErrorKindResolution, sentinel: ErrResolution},
		{kind: ErrorKindCondition, sentinel: ErrCondition},
		{kind: ErrorKindExecution, sentinel: ErrExecution},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewStepError("s", tt.kind, cause))

			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, "s", FailedStep(err))
			assert.Contains(t, err.Error(), `step "s"`)
		})
	}
}

func TestFallbackExhaustedError(t *testing.T) {
	original := NewStepError("a", ErrorKindExecution, errors.New("first"))
	fallback := NewStepError("b", ErrorKindResolution, ErrUnknownComponent)

	var err error = &FallbackExhaustedError{
		Step:        "a",
		Fallback:    "b",
		Original:    original,
		FallbackErr: fallback,
	}

	assert.ErrorIs(t, err, ErrFallbackExhausted)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, ErrUnknownComponent)
	assert.Equal(t, "a", FailedStep(err))
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), `via "b"`)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "a", stepErr.Step)
}

func TestFailedStep_Unrelated(t *testing.T) {
	assert.Equal(t, "", FailedStep(errors.New("plain")))
	assert.Equal(t, "", FailedStep(nil))
}
