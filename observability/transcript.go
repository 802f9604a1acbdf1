package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"gopkg.in/yaml.v3"
)

// TranscriptHook writes a human-readable transcript of every lifecycle event.
// Event payloads are rendered as YAML and nothing is truncated. The CLI uses
// it for --verbose runs.
type TranscriptHook struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var (
	_ modular.Callback       = (*TranscriptHook)(nil)
	_ modular.ChainStartHook = (*TranscriptHook)(nil)
	_ modular.ChainEndHook   = (*TranscriptHook)(nil)
)

// NewTranscriptHook creates a TranscriptHook writing to w, or stdout when w is nil.
func NewTranscriptHook(w io.Writer) *TranscriptHook {
	if w == nil {
		w = os.Stdout
	}
	return &TranscriptHook{out: w, now: time.Now}
}

// header writes an event header with timestamp.
func (h *TranscriptHook) header(name string) {
	fmt.Fprintf(h.out, "\n>>> [%s]: %s\n", name, h.now().Format("2006-01-02 15:04:05.000"))
}

func (h *TranscriptHook) line(format string, args ...any) {
	fmt.Fprintf(h.out, format+"\n", args...)
}

func (h *TranscriptHook) yaml(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		h.line("(failed to marshal: %v)", err)
		return
	}
	fmt.Fprint(h.out, string(data))
}

func (h *TranscriptHook) OnChainStart(_ context.Context, execCtx *modular.ExecutionContext, e modular.ChainStartEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header("ChainStart")
	h.line("================================================================================")
	h.line("CHAIN %s STARTED", e.Chain)
	h.line("================================================================================")
	h.yaml(map[string]any{
		"run_id": execCtx.RunID(),
		"steps":  e.Steps,
		"input":  e.Input,
	})
}

func (h *TranscriptHook) OnChainEnd(_ context.Context, execCtx *modular.ExecutionContext, e modular.ChainEndEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header("ChainEnd")
	h.line("================================================================================")
	h.line("CHAIN %s ENDED", e.Chain)
	h.line("================================================================================")
	data := map[string]any{
		"duration": e.Duration.String(),
		"output":   e.Output,
	}
	if e.Err != nil {
		data["error"] = e.Err.Error()
	}
	h.yaml(data)

	h.line("")
	h.line("History:")
	h.yaml(execCtx.History())
	if errs := execCtx.Errors(); len(errs) > 0 {
		h.line("Errors:")
		h.yaml(errs)
	}
}

func (h *TranscriptHook) OnStepStart(_ context.Context, _ *modular.ExecutionContext, e modular.StepStartEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(fmt.Sprintf("StepStart: %s", e.Step.Name))
	h.yaml(map[string]any{
		"type":      string(e.Step.Kind),
		"component": e.Step.Component,
		"depth":     e.Depth,
		"input":     e.Input,
	})
}

func (h *TranscriptHook) OnStepEnd(_ context.Context, _ *modular.ExecutionContext, e modular.StepEndEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(fmt.Sprintf("StepEnd: %s", e.Step.Name))
	h.line("Duration: %s", e.Duration)
	h.yaml(map[string]any{"output": e.Output})
}

func (h *TranscriptHook) OnCondition(_ context.Context, _ *modular.ExecutionContext, e modular.ConditionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(fmt.Sprintf("Condition: %s", e.Step.Name))
	h.yaml(map[string]any{"condition": e.Condition, "result": e.Result})
}

func (h *TranscriptHook) OnFallback(_ context.Context, _ *modular.ExecutionContext, e modular.FallbackEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(fmt.Sprintf("Fallback: %s -> %s", e.Step.Name, e.Fallback))
	h.yaml(map[string]any{"error": e.Err.Error(), "depth": e.Depth})
}

func (h *TranscriptHook) OnError(_ context.Context, _ *modular.ExecutionContext, e modular.ErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.header(fmt.Sprintf("Error: %s", e.Step.Name))
	h.yaml(map[string]any{"error": e.Err.Error(), "depth": e.Depth})
}
