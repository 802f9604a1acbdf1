package modular

import "time"

// -----------------------------------------------------------------------------
// Hook Event Interface
// -----------------------------------------------------------------------------

// HookEvent is a marker interface for all hook events.
type HookEvent interface {
	hookEvent()
}

// -----------------------------------------------------------------------------
// Chain Events
// -----------------------------------------------------------------------------

// ChainStartEvent is emitted once before the first step of a chain run.
type ChainStartEvent struct {
	// Chain is the name of the chain being run.
	Chain string

	// Input is the value the chain was run with.
	Input any

	// Steps is the number of declared steps.
	Steps int
}

func (ChainStartEvent) hookEvent() {}

// ChainEndEvent is emitted once after a chain run completes or fails.
type ChainEndEvent struct {
	Chain string

	// Output is the final running data (nil on failure).
	Output any

	// Err is the error that failed the run (nil on success).
	Err error

	Duration time.Duration
}

func (ChainEndEvent) hookEvent() {}

// -----------------------------------------------------------------------------
// Step Events
// -----------------------------------------------------------------------------

// StepStartEvent is emitted before a step's input is built and its runnable invoked.
type StepStartEvent struct {
	Chain string
	Step  Step

	// Input is the running data at the time the step starts.
	Input any

	// Depth is 0 for regular steps and 1+ when the step runs as a fallback.
	Depth int
}

func (StepStartEvent) hookEvent() {}

// StepEndEvent is emitted after a step's runnable returned successfully.
type StepEndEvent struct {
	Chain  string
	Step   Step
	Input  any
	Output any
	Depth  int

	Duration time.Duration
}

func (StepEndEvent) hookEvent() {}

// ConditionEvent is emitted after a step's condition was evaluated.
type ConditionEvent struct {
	Chain     string
	Step      Step
	Condition string
	Result    bool
}

func (ConditionEvent) hookEvent() {}

// FallbackEvent is emitted when a failed step hands over to its fallback.
type FallbackEvent struct {
	Chain    string
	Step     Step
	Fallback string

	// Err is the failure being recovered from.
	Err error

	// Depth is the depth the fallback step will run at.
	Depth int
}

func (FallbackEvent) hookEvent() {}

// ErrorEvent is emitted each time a step fails, before any fallback.
type ErrorEvent struct {
	Chain string
	Step  Step
	Err   error
	Depth int
}

func (ErrorEvent) hookEvent() {}
