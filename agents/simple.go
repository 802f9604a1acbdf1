package agents

import (
	"context"
	"log/slog"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/tools"
)

// Simple prompts the model once. Tools that apply to the prompt run first and
// their results are appended to the prompt as context.
//
// The prompt sent to the model is
//
//	{system}
//
//	User: {prompt}
//
//	Tool results:
//	- math: 7
//
// with the system and tool sections omitted when empty.
type Simple struct {
	base
}

var _ modular.Runnable = (*Simple)(nil)

// NewSimple creates a Simple agent over model.
func NewSimple(name string, model modular.Runnable) *Simple {
	return &Simple{base: newBase(name, model)}
}

// WithSystemPrompt sets the system prompt.
func (a *Simple) WithSystemPrompt(system string) *Simple {
	a.system = system
	return a
}

// WithTools adds tools the agent may use.
func (a *Simple) WithTools(t ...tools.Tool) *Simple {
	a.tools = append(a.tools, t...)
	return a
}

// WithLogger sets the logger for tool diagnostics.
func (a *Simple) WithLogger(logger *slog.Logger) *Simple {
	a.logger = logger
	return a
}

// Name returns the agent's name.
func (a *Simple) Name() string {
	return a.name
}

// Execute implements modular.Runnable.
func (a *Simple) Execute(ctx context.Context, input any) (any, error) {
	prompt := modular.Text(input)

	full := prompt
	if a.system != "" {
		full = a.system + "\n\nUser: " + prompt
	}
	if results := a.runTools(ctx, a.applicable(prompt), input); len(results) > 0 {
		full += "\n\nTool results:\n" + joinResults(results)
	}
	return a.generate(ctx, full)
}
