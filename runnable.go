package modular

import "context"

// Runnable is the resolved, invocable unit behind a step. LLM providers, tools,
// agents and nested chains all satisfy it.
//
// Implementations may be shared across concurrent runs, so Execute must be
// reentrant. The input must be treated as read-only.
type Runnable interface {
	Execute(ctx context.Context, input any) (any, error)
}

// RunnableFunc adapts a plain function to [Runnable].
type RunnableFunc func(ctx context.Context, input any) (any, error)

// Execute calls f(ctx, input).
func (f RunnableFunc) Execute(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// Applicable is implemented by runnables that can report whether they are
// relevant for a piece of text. Agents use it to pick tools; the chain executor
// never consults it.
type Applicable interface {
	ShouldUse(text string) bool
}

// Passthrough returns its input unchanged. It backs condition and fallback steps
// declared without a component.
var Passthrough Runnable = RunnableFunc(func(_ context.Context, input any) (any, error) {
	return input, nil
})
