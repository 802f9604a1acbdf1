// Package hooks provides a registry for chain lifecycle callbacks.
//
// Hooks observe chain execution. Each hook interface corresponds to one event
// type; implement only the interfaces you need, or embed
// [modular.BaseCallback] to get no-op defaults for the step-level ones.
//
// # Hook Interfaces
//
// Chain lifecycle:
//   - [modular.ChainStartHook] - before the first step
//   - [modular.ChainEndHook] - after the run completes or fails
//
// Step lifecycle:
//   - [modular.StepStartHook] - before a step's runnable is invoked
//   - [modular.StepEndHook] - after a step succeeds
//   - [modular.ConditionHook] - after a step condition is evaluated
//   - [modular.FallbackHook] - when a failed step hands over to its fallback
//   - [modular.ErrorHook] - each time a step fails
//
// # Creating a Hook
//
//	type SlowStepHook struct{ threshold time.Duration }
//
//	func (h *SlowStepHook) OnStepEnd(
//	    ctx context.Context,
//	    execCtx *modular.ExecutionContext,
//	    event modular.StepEndEvent,
//	) {
//	    if event.Duration > h.threshold {
//	        slog.Warn("slow step", "step", event.Step.Name, "duration", event.Duration)
//	    }
//	}
//
//	// Compile-time check
//	var _ modular.StepEndHook = (*SlowStepHook)(nil)
//
// # Panics
//
// Every dispatch is guarded. A hook that panics is logged and skipped so a
// misbehaving observer cannot abort the chain it observes.
package hooks
