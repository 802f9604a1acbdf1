package models

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func TestHelloOpenAI(t *testing.T) {
	apiKey := os.Getenv("MODULAR_TEST_OPENAI_KEY")
	if apiKey == "" {
		t.Skip("MODULAR_TEST_OPENAI_KEY not set")
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel("gpt-4o-mini"),
	)
	require.NoError(t, err, "failed to create OpenAI LLM")

	resp, err := NewLCGWrapper(llm).Generate(context.Background(), "Say hello in one word.")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
}

type usageModel struct {
	info    map[string]any
	choices int
}

func (m usageModel) GenerateContent(
	_ context.Context,
	_ []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	resp := &llms.ContentResponse{}
	for range m.choices {
		resp.Choices = append(resp.Choices, &llms.ContentChoice{
			Content:        "hi",
			StopReason:     "stop",
			GenerationInfo: m.info,
		})
	}
	return resp, nil
}

func (m usageModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLCGWrapper_TokenNormalization(t *testing.T) {
	tests := []struct {
		name     string
		info     map[string]any
		expected [3]int
	}{
		{
			name:     "openai keys",
			info:     map[string]any{"PromptTokens": 10, "CompletionTokens": 5, "TotalTokens": 15},
			expected: [3]int{10, 5, 15},
		},
		{
			name:     "anthropic keys computed total",
			info:     map[string]any{"InputTokens": int64(7), "OutputTokens": float64(3)},
			expected: [3]int{7, 3, 10},
		},
		{
			name:     "snake case keys",
			info:     map[string]any{"input_tokens": int32(2), "output_tokens": float32(4), "total_tokens": 6},
			expected: [3]int{2, 4, 6},
		},
		{
			name:     "no info",
			expected: [3]int{0, 0, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := NewLCGWrapper(usageModel{info: tc.info, choices: 1}).
				Generate(context.Background(), "x")
			require.NoError(t, err)
			assert.Equal(t, "hi", resp.Text)
			assert.Equal(t, "stop", resp.StopReason)
			assert.Equal(t, tc.expected, [3]int{resp.InputTokens, resp.OutputTokens, resp.TotalTokens})
		})
	}
}

func TestLCGWrapper_EmptyResponse(t *testing.T) {
	_, err := NewLCGWrapper(usageModel{}).Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLCGWrapper_Accessors(t *testing.T) {
	mock := tt.NewMockLLM()
	w := NewLCGWrapper(mock).WithModelName("llama3")
	assert.Equal(t, "llama3", w.ModelName())
	assert.Same(t, mock, w.Unwrap())
}

func TestLLM_Execute(t *testing.T) {
	type input struct {
		value  any
		params map[string]any
		llm    func(*LLM) *LLM
	}
	type expected struct {
		prompt      string
		temperature float64
		maxTokens   int
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:  "defaults",
			input: input{value: "hello"},
			expected: expected{
				prompt:      "hello",
				temperature: DefaultTemperature,
				maxTokens:   DefaultMaxTokens,
			},
		},
		{
			name: "map input uses prompt key",
			input: input{
				value: map[string]any{"prompt": "summarize", "style": "short"},
				llm:   func(l *LLM) *LLM { return l.WithTemperature(0.1).WithMaxTokens(64) },
			},
			expected: expected{prompt: "summarize", temperature: 0.1, maxTokens: 64},
		},
		{
			name: "step params override",
			input: input{
				value:  "q",
				params: map[string]any{"temperature": 0, "max_tokens": "128", "system": "Be brief."},
				llm:    func(l *LLM) *LLM { return l.WithSystemPrompt("ignored") },
			},
			expected: expected{prompt: "Be brief.\n\nq", temperature: 0, maxTokens: 128},
		},
		{
			name: "system prompt",
			input: input{
				value: "q",
				llm:   func(l *LLM) *LLM { return l.WithSystemPrompt("You are terse.") },
			},
			expected: expected{
				prompt:      "You are terse.\n\nq",
				temperature: DefaultTemperature,
				maxTokens:   DefaultMaxTokens,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := tt.NewMockLLM().AddResponse("answer")
			llm := NewLLM("writer", NewLCGWrapper(mock))
			if tc.input.llm != nil {
				llm = tc.input.llm(llm)
			}

			ctx := context.Background()
			if tc.input.params != nil {
				ctx = modular.WithStep(ctx, modular.Step{Name: "s", Params: tc.input.params})
			}

			out, err := llm.Execute(ctx, tc.input.value)
			require.NoError(t, err)
			assert.Equal(t, "answer", out)

			require.Len(t, mock.Prompts, 1)
			assert.Equal(t, tc.expected.prompt, mock.Prompts[0])
			assert.InDelta(t, tc.expected.temperature, mock.Options[0].Temperature, 1e-9)
			assert.Equal(t, tc.expected.maxTokens, mock.Options[0].MaxTokens)
		})
	}
}

func TestLLM_ExecuteError(t *testing.T) {
	mock := tt.NewMockLLM().AddError(errors.New("connection refused"))
	llm := NewLLM("writer", NewLCGWrapper(mock)).WithTimeout(time.Second)

	_, err := llm.Execute(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm "writer"`)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		err  error
	}{
		{name: "ollama default endpoint", cfg: ProviderConfig{Provider: "ollama", Model: "llama3"}},
		{name: "empty provider is ollama", cfg: ProviderConfig{Model: "llama3"}},
		{
			name: "openai with key",
			cfg:  ProviderConfig{Provider: "OpenAI", Model: "gpt-4o-mini", APIKey: "sk-test", Endpoint: "http://localhost:1"},
		},
		{name: "unknown", cfg: ProviderConfig{Provider: "watson"}, err: ErrUnknownProvider},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			llm, err := NewProvider(tc.cfg)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, llm)
		})
	}
}

func TestFromModel_AppliesConfig(t *testing.T) {
	temp := 0.2
	mock := tt.NewMockLLM()
	llm := FromModel("m", mock, ProviderConfig{Model: "llama3", Temperature: &temp, MaxTokens: 99})

	_, err := llm.Execute(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "m", llm.Name())
	assert.Equal(t, "llama3", llm.Model().ModelName())
	assert.InDelta(t, 0.2, mock.Options[0].Temperature, 1e-9)
	assert.Equal(t, 99, mock.Options[0].MaxTokens)
}
