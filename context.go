package modular

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext is the per-run state shared by every step of a chain, or by a
// tree of nested chains composed over it. It holds the named variables produced
// so far, the history of traced step results and the log of step failures.
//
// Accessors return copies so observers can snapshot a context while a run is
// still mutating it. Running two chains concurrently on one context is not
// supported.
type ExecutionContext struct {
	mu sync.RWMutex

	runID     string
	startTime time.Time

	variables map[string]any
	history   []HistoryEntry
	errors    []ErrorEntry
}

// HistoryEntry records one traced step result.
type HistoryEntry struct {
	Step      string    `json:"step" yaml:"step"`
	Result    any       `json:"result" yaml:"result"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ErrorEntry records one step failure.
type ErrorEntry struct {
	Step      string    `json:"step" yaml:"step"`
	Kind      ErrorKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error     string    `json:"error" yaml:"error"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Err is the original error value, kept for errors.Is/As inspection.
	Err error `json:"-" yaml:"-"`
}

// NewExecutionContext creates an empty context with a fresh run id.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		runID:     uuid.NewString(),
		startTime: time.Now(),
		variables: make(map[string]any),
		history:   make([]HistoryEntry, 0),
		errors:    make([]ErrorEntry, 0),
	}
}

// NewExecutionContextWithVariables creates a context seeded with vars.
func NewExecutionContextWithVariables(vars map[string]any) *ExecutionContext {
	ctx := NewExecutionContext()
	maps.Copy(ctx.variables, vars)
	return ctx
}

// RunID returns the unique id of the run this context belongs to.
func (c *ExecutionContext) RunID() string {
	return c.runID
}

// StartTime returns when the context was created.
func (c *ExecutionContext) StartTime() time.Time {
	return c.startTime
}

// -----------------------------------------------------------------------------
// Variables
// -----------------------------------------------------------------------------

// Set stores value under name, replacing any previous value.
func (c *ExecutionContext) Set(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
}

// Get returns the value stored under name, or def when there is none.
func (c *ExecutionContext) Get(name string, def any) any {
	if v, ok := c.Lookup(name); ok {
		return v
	}
	return def
}

// Lookup returns the value stored under name and whether it exists.
func (c *ExecutionContext) Lookup(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// Variables returns a shallow copy of all variables.
func (c *ExecutionContext) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.variables)
}

// -----------------------------------------------------------------------------
// History & Errors
// -----------------------------------------------------------------------------

// RecordHistory appends a step result to the history.
func (c *ExecutionContext) RecordHistory(step string, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, HistoryEntry{
		Step:      step,
		Result:    result,
		Timestamp: time.Now(),
	})
}

// RecordError appends a step failure to the error log.
func (c *ExecutionContext) RecordError(step string, err error) {
	entry := ErrorEntry{
		Step:      step,
		Timestamp: time.Now(),
		Err:       err,
	}
	if err != nil {
		entry.Error = err.Error()
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			entry.Kind = stepErr.Kind
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, entry)
}

// History returns a copy of the traced step results in execution order.
func (c *ExecutionContext) History() []HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// Errors returns a copy of the recorded step failures in order.
func (c *ExecutionContext) Errors() []ErrorEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ErrorEntry, len(c.errors))
	copy(out, c.errors)
	return out
}

// -----------------------------------------------------------------------------
// context.Context plumbing
// -----------------------------------------------------------------------------

type ctxKey int

const (
	execCtxKey ctxKey = iota
	stepKey
)

// WithExecutionContext returns a copy of ctx carrying execCtx. The chain
// executor uses it so nested chains share their caller's context.
func WithExecutionContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	return context.WithValue(ctx, execCtxKey, execCtx)
}

// ExecutionContextFrom returns the ExecutionContext carried by ctx, if any.
func ExecutionContextFrom(ctx context.Context) (*ExecutionContext, bool) {
	execCtx, ok := ctx.Value(execCtxKey).(*ExecutionContext)
	return execCtx, ok && execCtx != nil
}

// WithStep returns a copy of ctx carrying the step being executed.
func WithStep(ctx context.Context, step Step) context.Context {
	return context.WithValue(ctx, stepKey, step)
}

// StepFrom returns the step currently being executed, if ctx carries one.
func StepFrom(ctx context.Context) (Step, bool) {
	step, ok := ctx.Value(stepKey).(Step)
	return step, ok
}

// WithoutStep returns a copy of ctx carrying no step, so runnables invoked on
// behalf of a step do not pick up its params.
func WithoutStep(ctx context.Context) context.Context {
	return context.WithValue(ctx, stepKey, nil)
}
