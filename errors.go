package modular

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a step failure.
type ErrorKind string

const (
	// ErrorKindResolution means the step's (kind, component) pair has no runnable.
	ErrorKindResolution ErrorKind = "resolution"

	// ErrorKindCondition means the step's condition could not be evaluated.
	ErrorKindCondition ErrorKind = "condition"

	// ErrorKindExecution means the runnable failed, or the step input could not be built.
	ErrorKindExecution ErrorKind = "execution"

	// ErrorKindFallbackExhausted means the recovery step failed too.
	ErrorKindFallbackExhausted ErrorKind = "fallback_exhausted"
)

var (
	ErrResolution        = errors.New("resolution error")
	ErrCondition         = errors.New("condition evaluation error")
	ErrExecution         = errors.New("execution error")
	ErrFallbackExhausted = errors.New("fallback exhausted")

	// ErrFallbackDepth is the fallback-side cause when recovery would exceed
	// the configured maximum fallback depth.
	ErrFallbackDepth = errors.New("maximum fallback depth exceeded")

	// ErrUnknownComponent is returned by resolvers for unregistered components.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnresolvedReference is returned when an input mapping references a
	// variable that is not set.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorKindResolution:
		return ErrResolution
	case ErrorKindCondition:
		return ErrCondition
	case ErrorKindFallbackExhausted:
		return ErrFallbackExhausted
	default:
		return ErrExecution
	}
}

// StepError is the failure of a single step. It matches the sentinel of its
// kind with errors.Is and unwraps to the underlying cause.
type StepError struct {
	Step string
	Kind ErrorKind
	Err  error
}

// NewStepError creates a StepError.
func NewStepError(step string, kind ErrorKind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %s: %v", e.Step, e.Kind.sentinel(), e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// FallbackExhaustedError is returned when a step failed and its fallback
// could not recover. Both failures are kept for diagnostics.
type FallbackExhaustedError struct {
	Step        string
	Fallback    string
	Original    error
	FallbackErr error
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf(
		"step %q: %v via %q: %v (original: %v)",
		e.Step, ErrFallbackExhausted, e.Fallback, e.FallbackErr, e.Original,
	)
}

func (e *FallbackExhaustedError) Unwrap() []error {
	return []error{ErrFallbackExhausted, e.Original, e.FallbackErr}
}

// FailedStep returns the name of the step that ultimately failed a run, or ""
// when err carries no step information.
func FailedStep(err error) string {
	var fe *FallbackExhaustedError
	if errors.As(err, &fe) {
		return fe.Step
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
