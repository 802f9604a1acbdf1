package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	modular "github.com/Emilio-01-T/Modular-2"
)

// Registry manages a collection of hooks and dispatches events to them.
//
// Hooks can implement any combination of hook interfaces; they only receive
// events for the interfaces they implement, in the order they were registered.
//
//	registry := hooks.NewRegistry().
//	    Register(observability.NewLoggingHook(logger)).
//	    Register(metricsHook)
//
//	c, _ := chain.New("main", steps, resolver)
//	c.WithHooks(registry)
//
// # Thread Safety
//
// Registry is NOT safe for concurrent registration. Register all hooks before
// running chains; Fire methods may then be called from concurrent runs.
type Registry struct {
	hooks  []any
	logger *slog.Logger
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks:  make([]any, 0),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used to report recovered hook panics.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Register adds a hook to the registry. Hooks are called in the order they
// are registered.
func (r *Registry) Register(hook any) *Registry {
	r.hooks = append(r.hooks, hook)
	return r
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.hooks)
}

// safeCall runs fn and recovers a panic raised by the hook.
func (r *Registry) safeCall(event string, hook any, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("hook panicked",
				"event", event,
				"hook", fmt.Sprintf("%T", hook),
				"panic", rec,
			)
		}
	}()
	fn()
}

// FireChainStart dispatches a ChainStartEvent to all ChainStartHook implementations.
func (r *Registry) FireChainStart(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.ChainStartEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.ChainStartHook); ok {
			r.safeCall("chain_start", h, func() { hook.OnChainStart(ctx, execCtx, event) })
		}
	}
}

// FireChainEnd dispatches a ChainEndEvent to all ChainEndHook implementations.
func (r *Registry) FireChainEnd(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.ChainEndEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.ChainEndHook); ok {
			r.safeCall("chain_end", h, func() { hook.OnChainEnd(ctx, execCtx, event) })
		}
	}
}

// FireStepStart dispatches a StepStartEvent to all StepStartHook implementations.
func (r *Registry) FireStepStart(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.StepStartEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.StepStartHook); ok {
			r.safeCall("step_start", h, func() { hook.OnStepStart(ctx, execCtx, event) })
		}
	}
}

// FireStepEnd dispatches a StepEndEvent to all StepEndHook implementations.
func (r *Registry) FireStepEnd(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.StepEndEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.StepEndHook); ok {
			r.safeCall("step_end", h, func() { hook.OnStepEnd(ctx, execCtx, event) })
		}
	}
}

// FireCondition dispatches a ConditionEvent to all ConditionHook implementations.
func (r *Registry) FireCondition(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.ConditionEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.ConditionHook); ok {
			r.safeCall("condition", h, func() { hook.OnCondition(ctx, execCtx, event) })
		}
	}
}

// FireFallback dispatches a FallbackEvent to all FallbackHook implementations.
func (r *Registry) FireFallback(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.FallbackEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.FallbackHook); ok {
			r.safeCall("fallback", h, func() { hook.OnFallback(ctx, execCtx, event) })
		}
	}
}

// FireError dispatches an ErrorEvent to all ErrorHook implementations.
// This is informational only; hooks cannot change the outcome.
func (r *Registry) FireError(
	ctx context.Context,
	execCtx *modular.ExecutionContext,
	event modular.ErrorEvent,
) {
	for _, h := range r.hooks {
		if hook, ok := h.(modular.ErrorHook); ok {
			r.safeCall("error", h, func() { hook.OnError(ctx, execCtx, event) })
		}
	}
}
