package models

import (
	"context"
	"fmt"
	"strconv"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/tmc/langchaingo/llms"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
	DefaultTimeout     = 30 * time.Second
)

// Step params read by LLM.Execute.
const (
	ParamTemperature = "temperature"
	ParamMaxTokens   = "max_tokens"
	ParamSystem      = "system"
)

// LLM is the runnable behind "llm" steps. The step input is rendered to a
// prompt with modular.Text and the completion text is returned.
type LLM struct {
	name        string
	model       *LCGWrapper
	system      string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

var _ modular.Runnable = (*LLM)(nil)

// NewLLM creates an LLM runnable with default generation settings.
func NewLLM(name string, model *LCGWrapper) *LLM {
	return &LLM{
		name:        name,
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		timeout:     DefaultTimeout,
	}
}

// WithTemperature sets the default sampling temperature.
func (l *LLM) WithTemperature(t float64) *LLM {
	l.temperature = t
	return l
}

// WithMaxTokens sets the default completion length.
func (l *LLM) WithMaxTokens(n int) *LLM {
	if n > 0 {
		l.maxTokens = n
	}
	return l
}

// WithTimeout bounds each call. Zero disables the bound.
func (l *LLM) WithTimeout(d time.Duration) *LLM {
	l.timeout = d
	return l
}

// WithSystemPrompt prefixes every prompt with a system instruction.
func (l *LLM) WithSystemPrompt(system string) *LLM {
	l.system = system
	return l
}

// Name returns the component name.
func (l *LLM) Name() string {
	return l.name
}

// Model returns the wrapped model.
func (l *LLM) Model() *LCGWrapper {
	return l.model
}

// Execute implements modular.Runnable.
func (l *LLM) Execute(ctx context.Context, input any) (any, error) {
	resp, err := l.Generate(ctx, modular.Text(input))
	if err != nil {
		return nil, err
	}
	return resp.Text, nil
}

// Generate runs one completion. Params of the step carried by ctx override
// the configured temperature, max tokens and system prompt.
func (l *LLM) Generate(ctx context.Context, prompt string) (*Response, error) {
	temperature, maxTokens, system := l.temperature, l.maxTokens, l.system
	if step, ok := modular.StepFrom(ctx); ok {
		if v, ok := toFloat(step.Param(ParamTemperature, nil)); ok {
			temperature = v
		}
		if v, ok := toFloat(step.Param(ParamMaxTokens, nil)); ok && v > 0 {
			maxTokens = int(v)
		}
		if v, ok := step.Param(ParamSystem, nil).(string); ok {
			system = v
		}
	}
	if system != "" {
		prompt = system + "\n\n" + prompt
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	resp, err := l.model.Generate(ctx, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("llm %q: %w", l.name, err)
	}
	return resp, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
