package agents

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/Emilio-01-T/Modular-2/tools"
)

//go:embed tool_agent_plan.tmpl
var planTemplateContent string

//go:embed tool_agent_final.tmpl
var finalTemplateContent string

// PlanData is passed to the ToolAgent planning template.
type PlanData struct {
	System string
	Tools  []tools.Tool
	Prompt string
}

// FinalData is passed to the ToolAgent answer template.
type FinalData struct {
	Prompt    string
	Reasoning string
	Results   []ToolResult
}

// DefaultPlanTemplate asks the model how it would use the tools.
// Replace it with ToolAgent.WithPlanTemplate.
var DefaultPlanTemplate = template.Must(
	template.New("tool_agent_plan").Parse(planTemplateContent),
)

// DefaultFinalTemplate asks the model for an answer over the plan and the
// tool results. Replace it with ToolAgent.WithFinalTemplate.
var DefaultFinalTemplate = template.Must(
	template.New("tool_agent_final").Parse(finalTemplateContent),
)

func executeTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
