package agents

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/tools"
)

// ToolAgent plans with the model, runs the tools that apply to the prompt and
// asks the model for a final answer. When no tool applies it answers with a
// single model call over the planning prompt.
type ToolAgent struct {
	base
	planTmpl  *template.Template
	finalTmpl *template.Template
}

var _ modular.Runnable = (*ToolAgent)(nil)

// NewToolAgent creates a ToolAgent over model.
func NewToolAgent(name string, model modular.Runnable) *ToolAgent {
	return &ToolAgent{
		base:      newBase(name, model),
		planTmpl:  DefaultPlanTemplate,
		finalTmpl: DefaultFinalTemplate,
	}
}

// WithSystemPrompt sets the system prompt.
func (a *ToolAgent) WithSystemPrompt(system string) *ToolAgent {
	a.system = system
	return a
}

// WithTools adds tools the agent may use.
func (a *ToolAgent) WithTools(t ...tools.Tool) *ToolAgent {
	a.tools = append(a.tools, t...)
	return a
}

// WithLogger sets the logger for tool diagnostics.
func (a *ToolAgent) WithLogger(logger *slog.Logger) *ToolAgent {
	a.logger = logger
	return a
}

// WithPlanTemplate replaces the planning prompt template. It receives PlanData.
func (a *ToolAgent) WithPlanTemplate(tmpl *template.Template) *ToolAgent {
	a.planTmpl = tmpl
	return a
}

// WithFinalTemplate replaces the answer prompt template. It receives FinalData.
func (a *ToolAgent) WithFinalTemplate(tmpl *template.Template) *ToolAgent {
	a.finalTmpl = tmpl
	return a
}

// Name returns the agent's name.
func (a *ToolAgent) Name() string {
	return a.name
}

// Execute implements modular.Runnable.
func (a *ToolAgent) Execute(ctx context.Context, input any) (any, error) {
	prompt := modular.Text(input)

	plan, err := executeTemplate(a.planTmpl, PlanData{System: a.system, Tools: a.tools, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("agent %q: plan template: %w", a.name, err)
	}

	selected := a.applicable(prompt)
	if len(selected) == 0 {
		return a.generate(ctx, plan)
	}

	reasoning, err := a.generate(ctx, plan)
	if err != nil {
		return nil, err
	}

	results := a.runTools(ctx, selected, input)
	final, err := executeTemplate(a.finalTmpl, FinalData{Prompt: prompt, Reasoning: reasoning, Results: results})
	if err != nil {
		return nil, fmt.Errorf("agent %q: final template: %w", a.name, err)
	}
	return a.generate(ctx, final)
}
