// Package config loads the YAML file describing components, chains and
// pipelines.
//
// Loading happens in three passes: ${VAR} references are expanded from the
// environment, the document is checked against an embedded JSON Schema, and
// the decoded Config is checked by [Validate] for cross references that a
// schema cannot express (unknown agents' models, fallbacks to missing steps,
// chains that include themselves).
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/models"
	"gopkg.in/yaml.v3"
)

// DefaultAddr is the HTTP listen address when server.addr is empty.
const DefaultAddr = ":8080"

// Config is the root of a configuration file.
type Config struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`

	// LLM is a single unnamed model, kept for older files. Load moves it
	// into LLMs under the name "default".
	LLM  *LLMConfig  `yaml:"llm,omitempty" json:"llm,omitempty"`
	LLMs []LLMConfig `yaml:"llms" json:"llms"`

	Tools      []ComponentConfig `yaml:"tools" json:"tools"`
	Agents     []AgentConfig     `yaml:"agents" json:"agents"`
	Retrievers []ComponentConfig `yaml:"retrievers" json:"retrievers"`
	Memory     []ComponentConfig `yaml:"memory" json:"memory"`
	Splitters  []ComponentConfig `yaml:"splitters" json:"splitters"`
	Evaluators []ComponentConfig `yaml:"evaluators" json:"evaluators"`
	Parsers    []ComponentConfig `yaml:"output_parsers" json:"output_parsers"`

	Chains    []ChainConfig    `yaml:"chains" json:"chains"`
	Pipelines []PipelineConfig `yaml:"pipelines" json:"pipelines"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// EngineConfig tunes chain execution.
type EngineConfig struct {
	// MaxFallbackDepth bounds nested fallbacks. Nil uses the chain default.
	MaxFallbackDepth *int `yaml:"max_fallback_depth" json:"max_fallback_depth"`

	// TraceCapacity is the number of completed runs kept for inspection.
	TraceCapacity int `yaml:"trace_capacity" json:"trace_capacity"`
}

// LLMConfig names one model provider.
type LLMConfig struct {
	Name                  string `yaml:"name" json:"name"`
	models.ProviderConfig `yaml:",inline"`
}

// ComponentConfig declares a tool, retriever, memory, splitter, evaluator or
// parser. Type selects the implementation and Config holds its options.
type ComponentConfig struct {
	Name        string         `yaml:"name" json:"name"`
	Type        string         `yaml:"type" json:"type"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Config      map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// AgentConfig declares an agent.
type AgentConfig struct {
	Name         string   `yaml:"name" json:"name"`
	Type         string   `yaml:"type" json:"type"`
	LLM          string   `yaml:"llm" json:"llm"`
	Tools        []string `yaml:"tools" json:"tools"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt"`
}

// ChainConfig declares a chain.
type ChainConfig struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Tracing     *bool          `yaml:"tracing,omitempty" json:"tracing,omitempty"`
	Steps       []modular.Step `yaml:"steps" json:"steps"`
}

// PipelineConfig declares a pipeline. Each entry of Chains is either the name
// of a chain declared elsewhere or an inline chain.
type PipelineConfig struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Chains      []PipelineChain `yaml:"chains" json:"chains"`
}

// PipelineChain is a pipeline entry: a reference or an inline chain.
type PipelineChain struct {
	Ref    string
	Inline *ChainConfig
}

// Name returns the referenced or inline chain name.
func (p PipelineChain) Name() string {
	if p.Inline != nil {
		return p.Inline.Name
	}
	return p.Ref
}

// UnmarshalYAML accepts a scalar reference or a chain mapping.
func (p *PipelineChain) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.Ref)
	}
	var c ChainConfig
	if err := node.Decode(&c); err != nil {
		return err
	}
	p.Inline = &c
	return nil
}

// MarshalYAML writes references as scalars.
func (p PipelineChain) MarshalYAML() (any, error) {
	if p.Inline != nil {
		return p.Inline, nil
	}
	return p.Ref, nil
}

// Load reads, expands, checks and decodes the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var envRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} with environment values.
// Bare $name is left alone so step input references survive.
func ExpandEnv(data []byte) []byte {
	return envRe.ReplaceAllFunc(data, func(match []byte) []byte {
		m := envRe.FindSubmatch(match)
		if v, ok := os.LookupEnv(string(m[1])); ok && v != "" {
			return []byte(v)
		}
		return m[2]
	})
}

// Parse expands environment references in data, checks the document against
// the configuration schema, decodes it and applies defaults. It does not run
// Validate.
func Parse(data []byte) (*Config, error) {
	expanded := ExpandEnv(data)

	var doc any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := documentSchema.Validate(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM != nil {
		legacy := *c.LLM
		if legacy.Name == "" {
			legacy.Name = "default"
		}
		c.LLMs = append([]LLMConfig{legacy}, c.LLMs...)
		c.LLM = nil
	}
	for i := range c.LLMs {
		if c.LLMs[i].Name == "" {
			c.LLMs[i].Name = c.LLMs[i].Provider
		}
	}
	for i := range c.Agents {
		if c.Agents[i].Type == "" {
			c.Agents[i].Type = "simple"
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// AllChains returns the top-level chains followed by the inline chains of
// pipelines, in declaration order.
func (c *Config) AllChains() []ChainConfig {
	out := append([]ChainConfig(nil), c.Chains...)
	for _, p := range c.Pipelines {
		for _, pc := range p.Chains {
			if pc.Inline != nil {
				out = append(out, *pc.Inline)
			}
		}
	}
	return out
}
