package models

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// ErrEmptyResponse is returned when a provider answers with no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Response is a single-prompt completion with normalized token usage.
type Response struct {
	Text         string        `yaml:"text" json:"text"`
	Reasoning    string        `yaml:"reasoning,omitempty" json:"reasoning,omitempty"`
	StopReason   string        `yaml:"stop_reason,omitempty" json:"stop_reason,omitempty"`
	InputTokens  int           `yaml:"input_tokens" json:"input_tokens"`
	OutputTokens int           `yaml:"output_tokens" json:"output_tokens"`
	TotalTokens  int           `yaml:"total_tokens" json:"total_tokens"`
	Duration     time.Duration `yaml:"duration" json:"duration"`
}

// LCGWrapper wraps a langchaingo llms.Model. It normalizes token usage across
// providers so callers never need to know which backend answered.
//
//	llm, _ := openai.New(openai.WithToken(apiKey))
//	model := models.NewLCGWrapper(llm).WithModelName("gpt-4o-mini")
//	resp, err := model.Generate(ctx, "Hello")
type LCGWrapper struct {
	model     llms.Model
	modelName string
}

// NewLCGWrapper creates a new LCGWrapper wrapping the given llms.Model.
func NewLCGWrapper(model llms.Model) *LCGWrapper {
	return &LCGWrapper{model: model}
}

// WithModelName sets the name reported by ModelName.
func (m *LCGWrapper) WithModelName(name string) *LCGWrapper {
	m.modelName = name
	return m
}

// ModelName returns the configured model name.
func (m *LCGWrapper) ModelName() string {
	return m.modelName
}

// Unwrap returns the underlying llms.Model.
func (m *LCGWrapper) Unwrap() llms.Model {
	return m.model
}

// Generate sends prompt as a single human message and returns the first choice.
func (m *LCGWrapper) Generate(ctx context.Context, prompt string, options ...llms.CallOption) (*Response, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	start := time.Now()
	lcgResponse, err := m.model.GenerateContent(ctx, messages, options...)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}
	if lcgResponse == nil || len(lcgResponse.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return convertLCGResponse(lcgResponse, duration), nil
}

func convertLCGResponse(lcgResponse *llms.ContentResponse, duration time.Duration) *Response {
	choice := lcgResponse.Choices[0]
	response := &Response{
		Text:       choice.Content,
		Reasoning:  choice.ReasoningContent,
		StopReason: choice.StopReason,
		Duration:   duration,
	}
	if info := choice.GenerationInfo; info != nil {
		response.InputTokens = firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
		response.OutputTokens = firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
		response.TotalTokens = firstInt(info, "TotalTokens", "total_tokens")
	}
	if response.TotalTokens == 0 {
		response.TotalTokens = response.InputTokens + response.OutputTokens
	}
	return response
}

// firstInt returns the first positive value among keys. Providers disagree on
// key names: OpenAI and Ollama use PromptTokens, Anthropic InputTokens,
// Google and Bedrock snake_case.
func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := getIntFromMap(info, key); v > 0 {
			return v
		}
	}
	return 0
}

// getIntFromMap extracts an int value from a map, handling various numeric types.
func getIntFromMap(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}
