package observability

import (
	"context"
	"log/slog"

	modular "github.com/Emilio-01-T/Modular-2"
)

// LoggingHook logs chain lifecycle events. Step start and end are logged at
// debug, condition outcomes and chain completion at info, fallbacks at warn
// and failures at error.
type LoggingHook struct {
	logger *slog.Logger
}

var (
	_ modular.Callback     = (*LoggingHook)(nil)
	_ modular.ChainEndHook = (*LoggingHook)(nil)
)

// NewLoggingHook creates a LoggingHook writing to logger.
func NewLoggingHook(logger *slog.Logger) *LoggingHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) OnChainStart(ctx context.Context, execCtx *modular.ExecutionContext, e modular.ChainStartEvent) {
	h.logger.DebugContext(ctx, "chain started",
		"chain", e.Chain, "run_id", execCtx.RunID(), "steps", e.Steps)
}

func (h *LoggingHook) OnChainEnd(ctx context.Context, execCtx *modular.ExecutionContext, e modular.ChainEndEvent) {
	if e.Err != nil {
		h.logger.ErrorContext(ctx, "chain failed",
			"chain", e.Chain, "run_id", execCtx.RunID(), "duration", e.Duration, "error", e.Err)
		return
	}
	h.logger.InfoContext(ctx, "chain completed",
		"chain", e.Chain, "run_id", execCtx.RunID(), "duration", e.Duration)
}

func (h *LoggingHook) OnStepStart(ctx context.Context, execCtx *modular.ExecutionContext, e modular.StepStartEvent) {
	h.logger.DebugContext(ctx, "step started",
		"chain", e.Chain, "step", e.Step.Name, "type", e.Step.Kind, "component", e.Step.Component, "depth", e.Depth)
}

func (h *LoggingHook) OnStepEnd(ctx context.Context, execCtx *modular.ExecutionContext, e modular.StepEndEvent) {
	h.logger.DebugContext(ctx, "step completed",
		"chain", e.Chain, "step", e.Step.Name, "duration", e.Duration, "depth", e.Depth)
}

func (h *LoggingHook) OnCondition(ctx context.Context, execCtx *modular.ExecutionContext, e modular.ConditionEvent) {
	h.logger.InfoContext(ctx, "condition evaluated",
		"chain", e.Chain, "step", e.Step.Name, "condition", e.Condition, "result", e.Result)
}

func (h *LoggingHook) OnFallback(ctx context.Context, execCtx *modular.ExecutionContext, e modular.FallbackEvent) {
	h.logger.WarnContext(ctx, "fallback triggered",
		"chain", e.Chain, "step", e.Step.Name, "fallback", e.Fallback, "error", e.Err)
}

func (h *LoggingHook) OnError(ctx context.Context, execCtx *modular.ExecutionContext, e modular.ErrorEvent) {
	h.logger.ErrorContext(ctx, "step failed",
		"chain", e.Chain, "step", e.Step.Name, "depth", e.Depth, "error", e.Err)
}
