package agents

import (
	"context"
	"errors"
	"testing"
	"text/template"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/internal/tt"
	"github.com/Emilio-01-T/Modular-2/models"
	"github.com/Emilio-01-T/Modular-2/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingTool(t *testing.T) tools.Tool {
	t.Helper()
	tool, err := tools.NewFunc("weather", "Weather lookup", nil,
		func(context.Context, any) (string, error) {
			return "", errors.New("service unavailable")
		})
	require.NoError(t, err)
	return tool.WithKeywords("weather")
}

func TestSimple_Execute(t *testing.T) {
	type input struct {
		system string
		tools  []tools.Tool
		value  any
	}

	tests := []struct {
		name     string
		input    input
		expected string
	}{
		{
			name:     "prompt only",
			input:    input{value: "hello"},
			expected: "hello",
		},
		{
			name:     "system prompt",
			input:    input{system: "Be nice.", value: map[string]any{"prompt": "hello"}},
			expected: "Be nice.\n\nUser: hello",
		},
		{
			name:     "tool not applicable",
			input:    input{tools: []tools.Tool{tools.NewMath()}, value: "tell me a story"},
			expected: "tell me a story",
		},
		{
			name: "applicable tool results appended",
			input: input{
				system: "Be nice.",
				tools:  []tools.Tool{tools.NewMath()},
				value:  "quanto fa 3 + 4?",
			},
			expected: "Be nice.\n\nUser: quanto fa 3 + 4?\n\nTool results:\n- math: 7",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := tt.NewMockRunnable("llm").AddResponse("answer")
			agent := NewSimple("assistant", model).
				WithSystemPrompt(tc.input.system).
				WithTools(tc.input.tools...)

			out, err := agent.Execute(context.Background(), tc.input.value)
			require.NoError(t, err)
			assert.Equal(t, "answer", out)
			require.Equal(t, 1, model.CallCount())
			assert.Equal(t, tc.expected, model.Inputs[0])
		})
	}
}

func TestSimple_ToolFailureIsContext(t *testing.T) {
	model := tt.NewMockRunnable("llm").AddResponse("sorry")
	agent := NewSimple("assistant", model).WithTools(failingTool(t), tools.NewMath())

	out, err := agent.Execute(context.Background(), "weather in Rome?")
	require.NoError(t, err)
	assert.Equal(t, "sorry", out)
	assert.Equal(t, "weather in Rome?\n\nTool results:\n- weather: error - service unavailable", model.Inputs[0])
	assert.Equal(t, "assistant", agent.Name())
}

func TestSimple_ModelError(t *testing.T) {
	model := tt.NewMockRunnable("llm").AddError(errors.New("timeout"))
	_, err := NewSimple("assistant", model).Execute(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `agent "assistant": timeout`)
}

func TestToolAgent_WithTools(t *testing.T) {
	model := tt.NewMockRunnable("llm").
		AddResponse("I will use math.").
		AddResponse("The answer is 7.")
	agent := NewToolAgent("solver", model).WithTools(tools.NewMath(), failingTool(t))

	out, err := agent.Execute(context.Background(), map[string]any{"prompt": "calcola 3 + 4"})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 7.", out)
	require.Equal(t, 2, model.CallCount())

	plan := model.Inputs[0].(string)
	assert.Contains(t, plan, "You are an assistant that can use tools to help the user.")
	assert.Contains(t, plan, "Available tools:\n- math: ")
	assert.Contains(t, plan, "- weather: Weather lookup\n")
	assert.Contains(t, plan, "User: calcola 3 + 4\n\nAnalyze this task")

	final := model.Inputs[1].(string)
	assert.Contains(t, final, "Original request: calcola 3 + 4")
	assert.Contains(t, final, "Initial reasoning: I will use math.")
	assert.Contains(t, final, "Tool results:\n- math: 7\n")
	assert.NotContains(t, final, "weather")
}

func TestToolAgent_NoApplicableTool(t *testing.T) {
	model := tt.NewMockRunnable("llm").AddResponse("Once upon a time")
	agent := NewToolAgent("solver", model).
		WithSystemPrompt("You tell stories.").
		WithTools(tools.NewMath())

	out, err := agent.Execute(context.Background(), "tell me a story")
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time", out)
	require.Equal(t, 1, model.CallCount())
	assert.Contains(t, model.Inputs[0], "You tell stories.\n\nAvailable tools:")
}

func TestToolAgent_CustomTemplates(t *testing.T) {
	model := tt.NewMockRunnable("llm").AddResponse("plan").AddResponse("done")
	agent := NewToolAgent("solver", model).
		WithTools(tools.NewMath()).
		WithPlanTemplate(template.Must(template.New("p").Parse("PLAN {{.Prompt}}"))).
		WithFinalTemplate(template.Must(template.New("f").Parse("FINAL {{.Reasoning}} {{len .Results}}")))

	out, err := agent.Execute(context.Background(), "2 * 5")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, []any{"PLAN 2 * 5", "FINAL plan 1"}, model.Inputs)
	assert.Equal(t, "solver", agent.Name())
}

func TestToolAgent_TemplateError(t *testing.T) {
	model := tt.NewMockRunnable("llm")
	agent := NewToolAgent("solver", model).
		WithPlanTemplate(template.Must(template.New("p").Parse("{{.Missing}}")))

	_, err := agent.Execute(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan template")
	assert.Equal(t, 0, model.CallCount())
}

func TestAgents_StepParamsStayOffModel(t *testing.T) {
	step := modular.Step{
		Name: "ask",
		Kind: modular.KindAgent,
		Params: map[string]any{
			models.ParamSystem:      "STEP SYSTEM",
			models.ParamTemperature: 0.1,
			models.ParamMaxTokens:   5,
		},
	}

	tests := []struct {
		name  string
		agent func(model modular.Runnable) modular.Runnable
	}{
		{
			name:  "simple",
			agent: func(model modular.Runnable) modular.Runnable { return NewSimple("a", model) },
		},
		{
			name:  "tool agent",
			agent: func(model modular.Runnable) modular.Runnable { return NewToolAgent("a", model) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := tt.NewMockLLM().AddResponse("ok")
			llm := models.FromModel("m", mock, models.ProviderConfig{})

			_, err := tc.agent(llm).Execute(modular.WithStep(context.Background(), step), "hello")
			require.NoError(t, err)

			require.Len(t, mock.Prompts, 1)
			assert.NotContains(t, mock.Prompts[0], "STEP SYSTEM")
			assert.InDelta(t, models.DefaultTemperature, mock.Options[0].Temperature, 1e-9)
			assert.NotEqual(t, 5, mock.Options[0].MaxTokens)
		})
	}
}
