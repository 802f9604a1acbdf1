package config

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/schema"
)

//go:embed schema.json
var schemaJSON []byte

var documentSchema = mustSchema()

func mustSchema() *schema.Schema {
	s, err := schema.CompileJSON("config.schema.json", schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the JSON Schema configuration files are checked against.
func Schema() map[string]any {
	return documentSchema.Raw()
}

// ErrCycle is returned when a chain or pipeline includes itself, directly or
// through other chains.
var ErrCycle = errors.New("chain cycle")

// Validate checks cross references: unique names per section, agents'
// models and tools, step rules of every chain, pipeline members and chain
// cycles. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, uniqueNames("llm", namesOf(cfg.LLMs, func(l LLMConfig) string { return l.Name }))...)
	for section, comps := range cfg.componentSections() {
		errs = append(errs, uniqueNames(section, namesOf(comps, func(c ComponentConfig) string { return c.Name }))...)
	}
	errs = append(errs, uniqueNames("agent", namesOf(cfg.Agents, func(a AgentConfig) string { return a.Name }))...)

	chains := cfg.AllChains()
	flows := namesOf(chains, func(c ChainConfig) string { return c.Name })
	flows = append(flows, namesOf(cfg.Pipelines, func(p PipelineConfig) string { return p.Name })...)
	errs = append(errs, uniqueNames("chain or pipeline", flows)...)

	llms := setOf(namesOf(cfg.LLMs, func(l LLMConfig) string { return l.Name }))
	tools := setOf(namesOf(cfg.Tools, func(c ComponentConfig) string { return c.Name }))
	for _, a := range cfg.Agents {
		switch {
		case a.LLM == "" && len(cfg.LLMs) == 0:
			errs = append(errs, fmt.Errorf("agent %q: no llm configured", a.Name))
		case a.LLM != "" && !llms[a.LLM]:
			errs = append(errs, fmt.Errorf("agent %q: unknown llm %q", a.Name, a.LLM))
		}
		for _, t := range a.Tools {
			if !tools[t] {
				errs = append(errs, fmt.Errorf("agent %q: unknown tool %q", a.Name, t))
			}
		}
	}

	for _, c := range chains {
		if err := modular.ValidateSteps(c.Steps); err != nil {
			errs = append(errs, fmt.Errorf("chain %q: %w", c.Name, err))
		}
	}

	declared := setOf(namesOf(cfg.Chains, func(c ChainConfig) string { return c.Name }))
	for _, p := range cfg.Pipelines {
		if len(p.Chains) == 0 {
			errs = append(errs, fmt.Errorf("pipeline %q: no chains", p.Name))
		}
		for _, pc := range p.Chains {
			if pc.Inline == nil && !declared[pc.Ref] {
				errs = append(errs, fmt.Errorf("pipeline %q: unknown chain %q", p.Name, pc.Ref))
			}
		}
	}

	if err := cfg.checkCycles(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Warnings reports steps whose component is not declared in the file. They
// are not errors because components may also be registered in code.
func Warnings(cfg *Config) []string {
	known := cfg.componentIndex()
	var out []string
	for _, c := range cfg.AllChains() {
		for _, s := range c.Steps {
			if s.Component == "" {
				continue
			}
			kinds := known[s.Component]
			if s.Kind == "" && len(kinds) > 0 {
				continue
			}
			if s.Kind != "" && slices.Contains(kinds, s.Kind) {
				continue
			}
			out = append(out, fmt.Sprintf("chain %q step %q: component %q is not declared", c.Name, s.Name, s.Component))
		}
	}
	return out
}

// componentSections maps section names to their component lists.
func (c *Config) componentSections() map[string][]ComponentConfig {
	return map[string][]ComponentConfig{
		"tool":      c.Tools,
		"retriever": c.Retrievers,
		"memory":    c.Memory,
		"splitter":  c.Splitters,
		"evaluator": c.Evaluators,
		"parser":    c.Parsers,
	}
}

// componentIndex maps each declared name to the step kinds it resolves under.
func (c *Config) componentIndex() map[string][]modular.StepKind {
	idx := make(map[string][]modular.StepKind)
	add := func(kind modular.StepKind, name string) {
		idx[name] = append(idx[name], kind)
	}
	for _, l := range c.LLMs {
		add(modular.KindLLM, l.Name)
	}
	for section, comps := range c.componentSections() {
		for _, comp := range comps {
			add(modular.StepKind(section), comp.Name)
		}
	}
	for _, a := range c.Agents {
		add(modular.KindAgent, a.Name)
	}
	for _, ch := range c.AllChains() {
		add(modular.KindChain, ch.Name)
	}
	for _, p := range c.Pipelines {
		add(modular.KindChain, p.Name)
	}
	return idx
}

// checkCycles walks chain steps that invoke chains or pipelines.
func (c *Config) checkCycles() error {
	edges := make(map[string][]string)
	flows := make(map[string]bool)
	for _, ch := range c.AllChains() {
		flows[ch.Name] = true
	}
	for _, p := range c.Pipelines {
		flows[p.Name] = true
		for _, pc := range p.Chains {
			edges[p.Name] = append(edges[p.Name], pc.Name())
		}
	}
	for _, ch := range c.AllChains() {
		for _, s := range ch.Steps {
			if (s.Kind == modular.KindChain || s.Kind == "") && flows[s.Component] {
				edges[ch.Name] = append(edges[ch.Name], s.Component)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("%w: %v", ErrCycle, append(path, name))
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range edges[name] {
			if err := visit(next, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(flows))
	for name := range flows {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func namesOf[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = name(item)
	}
	return out
}

func setOf(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func uniqueNames(section string, names []string) []error {
	var errs []error
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			errs = append(errs, fmt.Errorf("%s %q: duplicate name", section, n))
		}
		seen[n] = true
	}
	return errs
}
