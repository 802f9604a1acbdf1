package builder

import (
	"fmt"
	"strings"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/agents"
	"github.com/Emilio-01-T/Modular-2/config"
	"github.com/Emilio-01-T/Modular-2/evaluators"
	"github.com/Emilio-01-T/Modular-2/memory"
	"github.com/Emilio-01-T/Modular-2/models"
	"github.com/Emilio-01-T/Modular-2/parsers"
	"github.com/Emilio-01-T/Modular-2/retrievers"
	"github.com/Emilio-01-T/Modular-2/schema"
	"github.com/Emilio-01-T/Modular-2/splitters"
	"github.com/Emilio-01-T/Modular-2/tools"
	"github.com/mitchellh/mapstructure"
	"github.com/tmc/langchaingo/llms"
)

type componentBuilder struct {
	rt     *Runtime
	models map[string]llms.Model
}

// -----------------------------------------------------------------------------
// Typed component options, decoded from ComponentConfig.Config
// -----------------------------------------------------------------------------

type bufferOptions struct {
	Size int `mapstructure:"size"`
}

type redisOptions struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	Prefix      string        `mapstructure:"prefix"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxMessages int           `mapstructure:"max_messages"`
	Session     string        `mapstructure:"session"`
}

type retrieverOptions struct {
	Documents []string `mapstructure:"documents"`
	Files     []string `mapstructure:"files"`
	TopK      int      `mapstructure:"top_k"`
	LLM       string   `mapstructure:"llm"`
}

type jsonParserOptions struct {
	Schema map[string]any `mapstructure:"schema"`
}

type regexParserOptions struct {
	Pattern string `mapstructure:"pattern"`
}

// decode copies raw component options into out. Unknown keys are errors so
// typos surface at build time.
func decode(raw map[string]any, out any) error {
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (b *componentBuilder) build() error {
	steps := []func() error{
		b.buildLLMs,
		b.buildTools,
		b.buildMemory,
		b.buildRetrievers,
		b.buildSplitters,
		b.buildParsers,
		b.buildEvaluators,
		b.buildAgents,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) register(kind modular.StepKind, name string, run modular.Runnable) error {
	if err := b.rt.registry.Register(kind, name, run); err != nil {
		return err
	}
	b.rt.logger.Debug("component registered", "kind", kind, "name", name)
	return nil
}

func componentError(kind modular.StepKind, c config.ComponentConfig, err error) error {
	return fmt.Errorf("%s %q (type %q): %w", kind, c.Name, c.Type, err)
}

func (b *componentBuilder) buildLLMs() error {
	for _, l := range b.rt.config.LLMs {
		var (
			llm *models.LLM
			err error
		)
		if m, ok := b.models[l.Name]; ok {
			llm = models.FromModel(l.Name, m, l.ProviderConfig)
		} else if llm, err = models.New(l.Name, l.ProviderConfig); err != nil {
			return err
		}
		if err := b.register(modular.KindLLM, l.Name, llm); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildTools() error {
	for _, c := range b.rt.config.Tools {
		var run modular.Runnable
		switch strings.ToLower(c.Type) {
		case "math", "calculator":
			run = tools.NewMath()
		default:
			return componentError(modular.KindTool, c, ErrUnknownType)
		}
		if err := b.register(modular.KindTool, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildMemory() error {
	for _, c := range b.rt.config.Memory {
		var store memory.Store
		session := c.Name
		switch strings.ToLower(c.Type) {
		case "conversation":
			store = memory.NewConversation()
		case "buffer":
			var opts bufferOptions
			if err := decode(c.Config, &opts); err != nil {
				return componentError(modular.KindMemory, c, err)
			}
			store = memory.NewBuffer(opts.Size)
		case "redis":
			var opts redisOptions
			if err := decode(c.Config, &opts); err != nil {
				return componentError(modular.KindMemory, c, err)
			}
			if opts.Addr == "" {
				opts.Addr = "localhost:6379"
			}
			var ropts []memory.RedisOption
			if opts.Prefix != "" {
				ropts = append(ropts, memory.WithPrefix(opts.Prefix))
			}
			if opts.TTL > 0 {
				ropts = append(ropts, memory.WithTTL(opts.TTL))
			}
			if opts.MaxMessages > 0 {
				ropts = append(ropts, memory.WithMaxMessages(opts.MaxMessages))
			}
			rs := memory.NewRedisStore(opts.Addr, opts.Password, opts.DB, ropts...)
			b.rt.closers = append(b.rt.closers, rs)
			store = rs
			if opts.Session != "" {
				session = opts.Session
			}
		default:
			return componentError(modular.KindMemory, c, ErrUnknownType)
		}
		run := memory.NewRunnable(c.Name, store).WithSession(session)
		if err := b.register(modular.KindMemory, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildRetrievers() error {
	for _, c := range b.rt.config.Retrievers {
		var opts retrieverOptions
		if err := decode(c.Config, &opts); err != nil {
			return componentError(modular.KindRetriever, c, err)
		}
		docs := make([]retrievers.Document, 0, len(opts.Documents))
		for _, d := range opts.Documents {
			docs = append(docs, retrievers.Document{Content: d})
		}
		loaded, err := retrievers.LoadFiles(opts.Files...)
		if err != nil {
			return componentError(modular.KindRetriever, c, err)
		}
		index := retrievers.NewKeyword(append(docs, loaded...)...).WithTopK(opts.TopK)

		var run modular.Runnable
		switch strings.ToLower(c.Type) {
		case "keyword":
			run = index
		case "rag":
			var model modular.Runnable
			if opts.LLM != "" {
				if model, err = b.rt.registry.Resolve(modular.KindLLM, opts.LLM); err != nil {
					return componentError(modular.KindRetriever, c, err)
				}
			}
			run = retrievers.NewRAG(index, model)
		default:
			return componentError(modular.KindRetriever, c, ErrUnknownType)
		}
		if err := b.register(modular.KindRetriever, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildSplitters() error {
	for _, c := range b.rt.config.Splitters {
		var run modular.Runnable
		switch strings.ToLower(c.Type) {
		case "words", "word_chunk":
			var w splitters.Words
			if err := decode(c.Config, &w); err != nil {
				return componentError(modular.KindSplitter, c, err)
			}
			run = w
		case "lines":
			run = splitters.Lines{}
		default:
			return componentError(modular.KindSplitter, c, ErrUnknownType)
		}
		if err := b.register(modular.KindSplitter, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildParsers() error {
	for _, c := range b.rt.config.Parsers {
		var run modular.Runnable
		switch strings.ToLower(c.Type) {
		case "json":
			var opts jsonParserOptions
			if err := decode(c.Config, &opts); err != nil {
				return componentError(modular.KindParser, c, err)
			}
			s, err := schema.Compile(opts.Schema)
			if err != nil {
				return componentError(modular.KindParser, c, err)
			}
			run = parsers.JSON{Schema: s}
		case "yaml":
			run = parsers.YAML{}
		case "regex":
			var opts regexParserOptions
			if err := decode(c.Config, &opts); err != nil {
				return componentError(modular.KindParser, c, err)
			}
			p, err := parsers.NewRegex(opts.Pattern)
			if err != nil {
				return componentError(modular.KindParser, c, err)
			}
			run = p
		default:
			return componentError(modular.KindParser, c, ErrUnknownType)
		}
		if err := b.register(modular.KindParser, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildEvaluators() error {
	for _, c := range b.rt.config.Evaluators {
		var run modular.Runnable
		switch strings.ToLower(c.Type) {
		case "similarity":
			var e evaluators.Similarity
			if err := decode(c.Config, &e); err != nil {
				return componentError(modular.KindEvaluator, c, err)
			}
			run = e
		case "keyword":
			var e evaluators.Keyword
			if err := decode(c.Config, &e); err != nil {
				return componentError(modular.KindEvaluator, c, err)
			}
			run = e
		default:
			return componentError(modular.KindEvaluator, c, ErrUnknownType)
		}
		if err := b.register(modular.KindEvaluator, c.Name, run); err != nil {
			return err
		}
	}
	return nil
}

func (b *componentBuilder) buildAgents() error {
	for _, a := range b.rt.config.Agents {
		llmName := a.LLM
		if llmName == "" {
			llmName = b.rt.config.LLMs[0].Name
		}
		model, err := b.rt.registry.Resolve(modular.KindLLM, llmName)
		if err != nil {
			return fmt.Errorf("agent %q: %w", a.Name, err)
		}

		var agentTools []tools.Tool
		for _, name := range a.Tools {
			run, err := b.rt.registry.Resolve(modular.KindTool, name)
			if err != nil {
				return fmt.Errorf("agent %q: %w", a.Name, err)
			}
			t, ok := run.(tools.Tool)
			if !ok {
				return fmt.Errorf("agent %q: component %q is not a tool", a.Name, name)
			}
			agentTools = append(agentTools, t)
		}

		logger := b.rt.logger.With("agent", a.Name)
		var run modular.Runnable
		switch strings.ToLower(a.Type) {
		case "simple":
			run = agents.NewSimple(a.Name, model).
				WithSystemPrompt(a.SystemPrompt).
				WithTools(agentTools...).
				WithLogger(logger)
		case "tool", "tool_agent":
			run = agents.NewToolAgent(a.Name, model).
				WithSystemPrompt(a.SystemPrompt).
				WithTools(agentTools...).
				WithLogger(logger)
		default:
			return fmt.Errorf("agent %q (type %q): %w", a.Name, a.Type, ErrUnknownType)
		}
		if err := b.register(modular.KindAgent, a.Name, run); err != nil {
			return err
		}
	}
	return nil
}
