package modular

import "context"

// -----------------------------------------------------------------------------
// Callback Hook Interfaces
// -----------------------------------------------------------------------------
//
// Hooks observe chain execution. To use them:
//
//  1. Implement the desired hook interface(s), or embed BaseCallback
//  2. Register with hooks.Registry
//  3. Attach the registry to a chain with WithHooks
//
// Example:
//
//	type AuditHook struct {
//	    modular.BaseCallback
//	    logger *slog.Logger
//	}
//
//	func (h *AuditHook) OnError(ctx context.Context, execCtx *modular.ExecutionContext, e modular.ErrorEvent) {
//	    h.logger.Error("step failed", "step", e.Step.Name, "error", e.Err)
//	}
//
//	registry := hooks.NewRegistry().Register(&AuditHook{logger: slog.Default()})
//	c.WithHooks(registry)
//
// # Hook Execution Order
//
// Hooks are called in registration order, for every event they implement.
//
// # Error Handling
//
// Hooks do not return errors. A hook that panics is recovered by the registry,
// logged, and skipped; the chain and the remaining hooks are unaffected.
// -----------------------------------------------------------------------------

// ChainStartHook is notified before the first step of a chain run.
type ChainStartHook interface {
	OnChainStart(ctx context.Context, execCtx *ExecutionContext, event ChainStartEvent)
}

// ChainEndHook is notified after a chain run, on success and on failure.
type ChainEndHook interface {
	OnChainEnd(ctx context.Context, execCtx *ExecutionContext, event ChainEndEvent)
}

// StepStartHook is notified when a step starts.
type StepStartHook interface {
	OnStepStart(ctx context.Context, execCtx *ExecutionContext, event StepStartEvent)
}

// StepEndHook is notified when a step completes successfully.
type StepEndHook interface {
	OnStepEnd(ctx context.Context, execCtx *ExecutionContext, event StepEndEvent)
}

// ConditionHook is notified with the outcome of every evaluated step condition.
type ConditionHook interface {
	OnCondition(ctx context.Context, execCtx *ExecutionContext, event ConditionEvent)
}

// FallbackHook is notified when a failed step is handed over to its fallback.
type FallbackHook interface {
	OnFallback(ctx context.Context, execCtx *ExecutionContext, event FallbackEvent)
}

// ErrorHook is notified each time a step fails.
type ErrorHook interface {
	OnError(ctx context.Context, execCtx *ExecutionContext, event ErrorEvent)
}

// Callback is the full callback sink: every step-level hook.
type Callback interface {
	StepStartHook
	StepEndHook
	ConditionHook
	FallbackHook
	ErrorHook
}

// BaseCallback implements [Callback] with no-ops. Embed it and override only
// the events of interest.
type BaseCallback struct{}

var _ Callback = BaseCallback{}

func (BaseCallback) OnStepStart(context.Context, *ExecutionContext, StepStartEvent) {}
func (BaseCallback) OnStepEnd(context.Context, *ExecutionContext, StepEndEvent)     {}
func (BaseCallback) OnCondition(context.Context, *ExecutionContext, ConditionEvent) {}
func (BaseCallback) OnFallback(context.Context, *ExecutionContext, FallbackEvent)   {}
func (BaseCallback) OnError(context.Context, *ExecutionContext, ErrorEvent)         {}
