package tt

import (
	"context"
	"sync"

	modular "github.com/Emilio-01-T/Modular-2"
)

// -----------------------------------------------------------------------------
// RecordingHook - captures every lifecycle event in dispatch order
// -----------------------------------------------------------------------------

// RecordedEvent is one captured hook invocation.
type RecordedEvent struct {
	// Name is one of chain_start, chain_end, step_start, step_end, condition,
	// fallback and error.
	Name string

	// Step is the step the event refers to ("" for chain events).
	Step string

	Event modular.HookEvent
}

// RecordingHook implements every hook interface and records the events it sees.
type RecordingHook struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewRecordingHook creates an empty RecordingHook.
func NewRecordingHook() *RecordingHook {
	return &RecordingHook{}
}

func (h *RecordingHook) record(name, step string, event modular.HookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, RecordedEvent{Name: name, Step: step, Event: event})
}

// Events returns a copy of the captured events.
func (h *RecordingHook) Events() []RecordedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RecordedEvent, len(h.events))
	copy(out, h.events)
	return out
}

// Sequence returns "name:step" strings for compact ordering assertions.
// Chain events are reported by name only.
func (h *RecordingHook) Sequence() []string {
	events := h.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		if e.Step == "" {
			out = append(out, e.Name)
			continue
		}
		out = append(out, e.Name+":"+e.Step)
	}
	return out
}

func (h *RecordingHook) OnChainStart(_ context.Context, _ *modular.ExecutionContext, e modular.ChainStartEvent) {
	h.record("chain_start", "", e)
}

func (h *RecordingHook) OnChainEnd(_ context.Context, _ *modular.ExecutionContext, e modular.ChainEndEvent) {
	h.record("chain_end", "", e)
}

func (h *RecordingHook) OnStepStart(_ context.Context, _ *modular.ExecutionContext, e modular.StepStartEvent) {
	h.record("step_start", e.Step.Name, e)
}

func (h *RecordingHook) OnStepEnd(_ context.Context, _ *modular.ExecutionContext, e modular.StepEndEvent) {
	h.record("step_end", e.Step.Name, e)
}

func (h *RecordingHook) OnCondition(_ context.Context, _ *modular.ExecutionContext, e modular.ConditionEvent) {
	h.record("condition", e.Step.Name, e)
}

func (h *RecordingHook) OnFallback(_ context.Context, _ *modular.ExecutionContext, e modular.FallbackEvent) {
	h.record("fallback", e.Step.Name, e)
}

func (h *RecordingHook) OnError(_ context.Context, _ *modular.ExecutionContext, e modular.ErrorEvent) {
	h.record("error", e.Step.Name, e)
}

// PanickingHook panics on every step start. It is used to verify that hook
// failures cannot abort a chain.
type PanickingHook struct{}

func (PanickingHook) OnStepStart(context.Context, *modular.ExecutionContext, modular.StepStartEvent) {
	panic("hook failure")
}

// -----------------------------------------------------------------------------
// Resolver helpers
// -----------------------------------------------------------------------------

// MapResolver resolves components by name only, ignoring kind.
type MapResolver map[string]modular.Runnable

// Resolve implements modular.Resolver.
func (r MapResolver) Resolve(kind modular.StepKind, component string) (modular.Runnable, error) {
	if kind.IsControl() && component == "" {
		return modular.Passthrough, nil
	}
	if run, ok := r[component]; ok {
		return run, nil
	}
	return nil, modular.ErrUnknownComponent
}
