// Package builder turns a config.Config into a ready-to-run Runtime: it
// constructs every declared component, registers it in one registry and
// binds chains and pipelines against that registry.
//
//	cfg, err := config.Load("config.yaml")
//	rt, err := builder.Build(cfg, builder.Options{Logger: logger})
//	defer rt.Close()
//	out, err := rt.Run(ctx, "main", "hello", nil)
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/chain"
	"github.com/Emilio-01-T/Modular-2/condition"
	"github.com/Emilio-01-T/Modular-2/config"
	"github.com/Emilio-01-T/Modular-2/hooks"
	"github.com/Emilio-01-T/Modular-2/pipeline"
	"github.com/Emilio-01-T/Modular-2/registry"
	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrUnknownType is returned for a component type the builder cannot construct.
	ErrUnknownType = errors.New("unknown component type")

	// ErrUnknownTarget is returned by Run for a name that is neither a
	// pipeline nor a chain.
	ErrUnknownTarget = errors.New("unknown chain or pipeline")
)

// Options customizes Build.
type Options struct {
	// Logger receives build diagnostics and is handed to chains and agents.
	Logger *slog.Logger

	// Hooks is shared by every chain. Nil creates an empty registry.
	Hooks *hooks.Registry

	// Registry may hold components registered in code. Nil creates one.
	Registry *registry.Registry

	// Models replaces provider construction for the named llms.
	Models map[string]llms.Model

	// Evaluator evaluates step conditions. Nil uses the chain default.
	Evaluator condition.Evaluator
}

// Runtime is a built configuration.
type Runtime struct {
	config    *config.Config
	registry  *registry.Registry
	hooks     *hooks.Registry
	logger    *slog.Logger
	chains    map[string]*chain.Chain
	pipelines map[string]*pipeline.Pipeline
	closers   []io.Closer
	warnings  []string
}

// Build validates cfg and constructs its components, chains and pipelines.
func Build(cfg *config.Config, opts Options) (*Runtime, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rt := &Runtime{
		config:    cfg,
		registry:  opts.Registry,
		hooks:     opts.Hooks,
		logger:    opts.Logger,
		chains:    make(map[string]*chain.Chain),
		pipelines: make(map[string]*pipeline.Pipeline),
		warnings:  config.Warnings(cfg),
	}
	if rt.registry == nil {
		rt.registry = registry.New()
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.DiscardHandler)
	}
	if rt.hooks == nil {
		rt.hooks = hooks.NewRegistry().WithLogger(rt.logger)
	}
	for _, w := range rt.warnings {
		rt.logger.Warn("config warning", "warning", w)
	}

	b := &componentBuilder{rt: rt, models: opts.Models}
	if err := b.build(); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := rt.buildFlows(opts.Evaluator); err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.logger.Info("runtime built",
		"components", rt.registry.Len(),
		"chains", len(rt.chains),
		"pipelines", len(rt.pipelines),
	)
	return rt, nil
}

// flowRef resolves a chain or pipeline by name when it runs, so chains may
// invoke chains declared after them.
type flowRef struct {
	rt   *Runtime
	name string
}

func (f flowRef) Execute(ctx context.Context, input any) (any, error) {
	if p, ok := f.rt.pipelines[f.name]; ok {
		return p.Execute(ctx, input)
	}
	if c, ok := f.rt.chains[f.name]; ok {
		return c.Execute(ctx, input)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, f.name)
}

func (rt *Runtime) buildFlows(evaluator condition.Evaluator) error {
	chains := rt.config.AllChains()

	for _, c := range chains {
		if err := rt.registry.Register(modular.KindChain, c.Name, flowRef{rt: rt, name: c.Name}); err != nil {
			return err
		}
	}
	for _, p := range rt.config.Pipelines {
		if err := rt.registry.Register(modular.KindChain, p.Name, flowRef{rt: rt, name: p.Name}); err != nil {
			return err
		}
	}

	for _, cc := range chains {
		steps := slices.Clone(cc.Steps)
		if cc.Tracing != nil && !*cc.Tracing {
			for i := range steps {
				if steps[i].Tracing == nil {
					steps[i].Tracing = modular.Bool(false)
				}
			}
		}
		c, err := chain.New(cc.Name, steps, rt.registry)
		if err != nil {
			return err
		}
		c.WithHooks(rt.hooks).WithLogger(rt.logger).WithEvaluator(evaluator)
		if depth := rt.config.Engine.MaxFallbackDepth; depth != nil {
			c.WithMaxFallbackDepth(*depth)
		}
		rt.chains[cc.Name] = c
	}

	for _, pc := range rt.config.Pipelines {
		members := make([]*chain.Chain, 0, len(pc.Chains))
		for _, m := range pc.Chains {
			members = append(members, rt.chains[m.Name()])
		}
		rt.pipelines[pc.Name] = pipeline.New(pc.Name, members...)
	}
	return nil
}

// Config returns the configuration the runtime was built from.
func (rt *Runtime) Config() *config.Config {
	return rt.config
}

// Registry returns the component registry.
func (rt *Runtime) Registry() *registry.Registry {
	return rt.registry
}

// Hooks returns the hook registry shared by all chains.
func (rt *Runtime) Hooks() *hooks.Registry {
	return rt.hooks
}

// Warnings returns the non-fatal configuration warnings.
func (rt *Runtime) Warnings() []string {
	return rt.warnings
}

// Chain returns the named chain.
func (rt *Runtime) Chain(name string) (*chain.Chain, bool) {
	c, ok := rt.chains[name]
	return c, ok
}

// Pipeline returns the named pipeline.
func (rt *Runtime) Pipeline(name string) (*pipeline.Pipeline, bool) {
	p, ok := rt.pipelines[name]
	return p, ok
}

// Targets returns the sorted names of all chains and pipelines.
func (rt *Runtime) Targets() []string {
	names := slices.Collect(maps.Keys(rt.chains))
	names = append(names, slices.Collect(maps.Keys(rt.pipelines))...)
	slices.Sort(names)
	return names
}

// Modules returns the registered component names by kind.
func (rt *Runtime) Modules() map[modular.StepKind][]string {
	return rt.registry.List()
}

// Run executes the pipeline or chain called target. Pipelines take
// precedence. A nil execCtx runs against a fresh context.
func (rt *Runtime) Run(ctx context.Context, target string, input any, execCtx *modular.ExecutionContext) (any, error) {
	if p, ok := rt.pipelines[target]; ok {
		return p.Run(ctx, input, execCtx)
	}
	if c, ok := rt.chains[target]; ok {
		return c.Run(ctx, input, execCtx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}

// Ask sends prompt to the named agent and returns its answer as text.
func (rt *Runtime) Ask(ctx context.Context, agent, prompt string) (string, error) {
	run, err := rt.registry.Resolve(modular.KindAgent, agent)
	if err != nil {
		return "", err
	}
	out, err := run.Execute(ctx, map[string]any{"prompt": prompt})
	if err != nil {
		return "", err
	}
	return modular.Text(out), nil
}

// Close releases connections held by components.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c.Close())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
