package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/tools"
)

// ToolResult is the outcome of one tool run on behalf of an agent.
type ToolResult struct {
	Tool   string `yaml:"tool" json:"tool"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	Err    string `yaml:"error,omitempty" json:"error,omitempty"`
}

func (r ToolResult) String() string {
	if r.Err != "" {
		return fmt.Sprintf("%s: error - %s", r.Tool, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Tool, r.Output)
}

// base holds what every agent shares.
type base struct {
	name   string
	model  modular.Runnable
	system string
	tools  []tools.Tool
	logger *slog.Logger
}

func newBase(name string, model modular.Runnable) base {
	return base{
		name:   name,
		model:  model,
		logger: slog.New(slog.DiscardHandler),
	}
}

// applicable returns the tools whose ShouldUse matches prompt, in order.
func (b *base) applicable(prompt string) []tools.Tool {
	var out []tools.Tool
	for _, t := range b.tools {
		if t.ShouldUse(prompt) {
			out = append(out, t)
		}
	}
	return out
}

// runTools executes selected tools. A failing tool is reported in its result
// and does not stop the others.
func (b *base) runTools(ctx context.Context, selected []tools.Tool, input any) []ToolResult {
	results := make([]ToolResult, 0, len(selected))
	for _, t := range selected {
		out, err := t.Execute(ctx, input)
		if err != nil {
			b.logger.WarnContext(ctx, "tool failed", "agent", b.name, "tool", t.Name(), "error", err)
			results = append(results, ToolResult{Tool: t.Name(), Err: err.Error()})
			continue
		}
		b.logger.DebugContext(ctx, "tool executed", "agent", b.name, "tool", t.Name())
		results = append(results, ToolResult{Tool: t.Name(), Output: modular.Text(out)})
	}
	return results
}

// generate calls the model without the agent's step, whose params configure
// the agent and not the model behind it.
func (b *base) generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.model.Execute(modular.WithoutStep(ctx), prompt)
	if err != nil {
		return "", fmt.Errorf("agent %q: %w", b.name, err)
	}
	return modular.Text(out), nil
}

func joinResults(results []ToolResult) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = "- " + r.String()
	}
	return strings.Join(lines, "\n")
}
