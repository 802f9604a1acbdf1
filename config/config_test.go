package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
  format: json
engine:
  max_fallback_depth: 2
llms:
  - name: local
    provider: ollama
    model: llama3
    temperature: 0.2
    timeout: 45s
  - provider: openai
    model: gpt-4o-mini
    api_key: ${MODULAR_TEST_API_KEY}
tools:
  - name: calc
    type: math
agents:
  - name: helper
    llm: local
    tools: [calc]
    system_prompt: You are helpful.
memory:
  - name: history
    type: buffer
    config:
      size: 5
chains:
  - name: main
    steps:
      - name: think
        type: agent
        component: helper
        input:
          prompt: $input
        fallback: rescue
      - name: rescue
        type: llm
        component: local
        condition: "think == nil"
        tracing: false
pipelines:
  - name: flow
    chains:
      - main
      - name: post
        steps:
          - name: remember
            type: memory
            component: history
`

func TestParse_Sample(t *testing.T) {
	t.Setenv("MODULAR_TEST_API_KEY", "sk-123")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	assert.Empty(t, Warnings(cfg))

	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	require.NotNil(t, cfg.Engine.MaxFallbackDepth)
	assert.Equal(t, 2, *cfg.Engine.MaxFallbackDepth)

	require.Len(t, cfg.LLMs, 2)
	assert.Equal(t, "local", cfg.LLMs[0].Name)
	assert.Equal(t, 45*time.Second, cfg.LLMs[0].Timeout)
	require.NotNil(t, cfg.LLMs[0].Temperature)
	assert.InDelta(t, 0.2, *cfg.LLMs[0].Temperature, 1e-9)
	assert.Equal(t, "openai", cfg.LLMs[1].Name)
	assert.Equal(t, "sk-123", cfg.LLMs[1].APIKey)

	assert.Equal(t, "simple", cfg.Agents[0].Type)
	assert.Equal(t, map[string]any{"size": 5}, cfg.Memory[0].Config)

	steps := cfg.Chains[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, modular.KindAgent, steps[0].Kind)
	assert.Equal(t, map[string]any{"prompt": "$input"}, steps[0].Input)
	assert.Equal(t, "rescue", steps[0].FallbackStep())
	assert.False(t, steps[1].TracingEnabled())

	p := cfg.Pipelines[0]
	assert.Equal(t, "main", p.Chains[0].Ref)
	require.NotNil(t, p.Chains[1].Inline)
	assert.Equal(t, "post", p.Chains[1].Name())
	assert.Equal(t, []string{"main", "post"}, []string{cfg.AllChains()[0].Name, cfg.AllChains()[1].Name})
}

func TestParse_LegacyLLM(t *testing.T) {
	cfg, err := Parse([]byte("llm:\n  provider: ollama\n  model: llama3\nllms:\n  - name: big\n    model: llama3:70b\n"))
	require.NoError(t, err)
	require.Len(t, cfg.LLMs, 2)
	assert.Equal(t, "default", cfg.LLMs[0].Name)
	assert.Equal(t, "big", cfg.LLMs[1].Name)
	assert.Nil(t, cfg.LLM)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown top-level key", yaml: "chainz: []\n"},
		{name: "unknown step type", yaml: "chains:\n  - name: c\n    steps:\n      - name: s\n        type: webhook\n        component: x\n"},
		{name: "step without name", yaml: "chains:\n  - name: c\n    steps:\n      - component: x\n"},
		{name: "bad duration", yaml: "llms:\n  - model: m\n    timeout: soon\n"},
		{name: "component without type", yaml: "tools:\n  - name: calc\n"},
		{name: "bad log level", yaml: "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var verr *schema.ValidationError
			assert.True(t, errors.As(err, &verr), "expected schema error, got %v", err)
		})
	}
}

func TestParse_StepKindAnyCase(t *testing.T) {
	cfg, err := Parse([]byte(`
tools:
  - {name: calc, type: math}
chains:
  - name: c
    steps:
      - {name: a, type: TOOL, component: calc}
      - {name: b, type: Condition, condition: "true"}
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	steps := cfg.Chains[0].Steps
	assert.Equal(t, modular.KindTool, steps[0].Kind)
	assert.Equal(t, modular.KindCondition, steps[1].Kind)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("chains: [\n"))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected []string
		cycle    bool
	}{
		{
			name:     "fallback to unknown step",
			yaml:     "chains:\n  - name: c\n    steps:\n      - {name: a, type: tool, component: t, fallback: ghost}\n",
			expected: []string{`chain "c"`, `fallback "ghost" not found`},
		},
		{
			name:     "duplicate step names",
			yaml:     "chains:\n  - name: c\n    steps:\n      - {name: a, component: t}\n      - {name: a, component: t}\n",
			expected: []string{`step "a": duplicate name`},
		},
		{
			name:     "duplicate chain and pipeline name",
			yaml:     "chains:\n  - name: x\n    steps: []\npipelines:\n  - name: x\n    chains: [x]\n",
			expected: []string{`chain or pipeline "x": duplicate name`},
			cycle:    true,
		},
		{
			name:     "agent references",
			yaml:     "llms:\n  - name: m\n    model: llama3\nagents:\n  - name: a\n    llm: ghost\n    tools: [nope]\n",
			expected: []string{`unknown llm "ghost"`, `unknown tool "nope"`},
		},
		{
			name:     "agent without any llm",
			yaml:     "agents:\n  - name: a\n",
			expected: []string{`agent "a": no llm configured`},
		},
		{
			name:     "pipeline unknown chain",
			yaml:     "pipelines:\n  - name: p\n    chains: [ghost]\n",
			expected: []string{`unknown chain "ghost"`},
		},
		{
			name:     "chain cycle",
			yaml:     "chains:\n  - name: a\n    steps:\n      - {name: s, type: chain, component: b}\n  - name: b\n    steps:\n      - {name: s, component: a}\n",
			expected: []string{"[a b a]"},
			cycle:    true,
		},
		{
			name:     "pipeline including itself through a chain",
			yaml:     "chains:\n  - name: a\n    steps:\n      - {name: s, type: chain, component: p}\npipelines:\n  - name: p\n    chains: [a]\n",
			expected: []string{"[a p a]"},
			cycle:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			err = Validate(cfg)
			require.Error(t, err)
			for _, e := range tt.expected {
				assert.ErrorContains(t, err, e)
			}
			assert.Equal(t, tt.cycle, errors.Is(err, ErrCycle))
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg, err := Parse([]byte(`
tools:
  - {name: calc, type: math}
chains:
  - name: c
    steps:
      - {name: a, type: tool, component: calc}
      - {name: b, type: llm, component: calc}
      - {name: c, component: ghost}
      - {name: d, type: condition, condition: "true"}
      - {name: e, component: calc}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		`chain "c" step "b": component "calc" is not declared`,
		`chain "c" step "c": component "ghost" is not declared`,
	}, Warnings(cfg))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}

func TestSchema(t *testing.T) {
	assert.Equal(t, "object", Schema()["type"])
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MODULAR_TEST_HOST", "redis:6379")
	t.Setenv("MODULAR_TEST_EMPTY", "")

	tests := []struct {
		input    string
		expected string
	}{
		{input: "addr: ${MODULAR_TEST_HOST}", expected: "addr: redis:6379"},
		{input: "addr: ${MODULAR_TEST_UNSET:-localhost:6379}", expected: "addr: localhost:6379"},
		{input: "addr: ${MODULAR_TEST_EMPTY:-fallback}", expected: "addr: fallback"},
		{input: "key: ${MODULAR_TEST_UNSET}", expected: "key: "},
		{input: "prompt: $input.text", expected: "prompt: $input.text"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(ExpandEnv([]byte(tt.input))))
		})
	}
}
