package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOllamaURL is used when an ollama provider has no endpoint.
const DefaultOllamaURL = "http://localhost:11434"

// ErrUnknownProvider is returned for provider names other than ollama and openai.
var ErrUnknownProvider = errors.New("unknown llm provider")

// ProviderConfig describes one configured model.
type ProviderConfig struct {
	Provider    string        `yaml:"provider" json:"provider" mapstructure:"provider"`
	Model       string        `yaml:"model" json:"model" mapstructure:"model"`
	Endpoint    string        `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" mapstructure:"api_key"`
	System      string        `yaml:"system" json:"system" mapstructure:"system"`
	Temperature *float64      `yaml:"temperature" json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// NewProvider constructs the langchaingo model named by cfg.Provider.
func NewProvider(cfg ProviderConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("ollama %q: %w", cfg.Model, err)
		}
		return llm, nil
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai %q: %w", cfg.Model, err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// New builds an LLM runnable from cfg.
func New(name string, cfg ProviderConfig) (*LLM, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm %q: %w", name, err)
	}
	return FromModel(name, provider, cfg), nil
}

// FromModel builds an LLM runnable around an existing model, applying the
// generation settings of cfg.
func FromModel(name string, model llms.Model, cfg ProviderConfig) *LLM {
	llm := NewLLM(name, NewLCGWrapper(model).WithModelName(cfg.Model)).
		WithMaxTokens(cfg.MaxTokens).
		WithSystemPrompt(cfg.System)
	if cfg.Temperature != nil {
		llm.WithTemperature(*cfg.Temperature)
	}
	if cfg.Timeout > 0 {
		llm.WithTimeout(cfg.Timeout)
	}
	return llm
}
