package modular

import (
	"errors"
	"fmt"
	"strings"
)

// StepKind discriminates what a step's component is.
type StepKind string

const (
	KindLLM       StepKind = "llm"
	KindTool      StepKind = "tool"
	KindAgent     StepKind = "agent"
	KindRetriever StepKind = "retriever"
	KindMemory    StepKind = "memory"
	KindSplitter  StepKind = "splitter"
	KindEvaluator StepKind = "evaluator"
	KindParser    StepKind = "parser"
	KindChain     StepKind = "chain"
	KindCondition StepKind = "condition"
	KindFallback  StepKind = "fallback"
)

// Kinds lists every valid step kind in declaration order.
var Kinds = []StepKind{
	KindLLM, KindTool, KindAgent, KindRetriever, KindMemory, KindSplitter,
	KindEvaluator, KindParser, KindChain, KindCondition, KindFallback,
}

// Valid reports whether k is one of the known kinds.
func (k StepKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsControl reports whether k is a control kind that may omit its component.
func (k StepKind) IsControl() bool {
	return k == KindCondition || k == KindFallback
}

// ParseStepKind parses a kind name case-insensitively.
func ParseStepKind(s string) (StepKind, error) {
	k := StepKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown step kind %q", s)
	}
	return k, nil
}

// UnmarshalText decodes a kind through ParseStepKind, so YAML and JSON accept
// any case. An empty value leaves the kind unset.
func (k *StepKind) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*k = ""
		return nil
	}
	parsed, err := ParseStepKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Step is an immutable declaration of one unit of work in a chain.
type Step struct {
	// Name identifies the step within its chain.
	Name string `yaml:"name" json:"name" mapstructure:"name"`

	// Kind selects which family of components Component is looked up in.
	// When empty the component name must be unique across kinds.
	Kind StepKind `yaml:"type,omitempty" json:"type,omitempty" mapstructure:"type"`

	// Component is the registered name of the runnable to invoke.
	Component string `yaml:"component,omitempty" json:"component,omitempty" mapstructure:"component"`

	// Input maps the step input from context variables and literals.
	// See [ResolveInput] for the reference syntax. Nil passes the running data.
	Input any `yaml:"input,omitempty" json:"input,omitempty" mapstructure:"input"`

	// Output is the variable the result is stored under. Defaults to Name.
	Output string `yaml:"output,omitempty" json:"output,omitempty" mapstructure:"output"`

	// Condition is a boolean expression over context variables. The step is
	// skipped when it evaluates false.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty" mapstructure:"condition"`

	// Fallback names the step that runs, with the same input, when this one fails.
	Fallback string `yaml:"fallback,omitempty" json:"fallback,omitempty" mapstructure:"fallback"`

	// OnError is accepted as an alias for Fallback.
	OnError string `yaml:"on_error,omitempty" json:"on_error,omitempty" mapstructure:"on_error"`

	// Tracing controls whether results are appended to history. Nil means true.
	Tracing *bool `yaml:"tracing,omitempty" json:"tracing,omitempty" mapstructure:"tracing"`

	// Params are free-form per-step settings readable by the component via [StepFrom].
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" mapstructure:"params"`
}

// OutputVariable returns the variable name the step's result is stored under.
func (s Step) OutputVariable() string {
	if s.Output != "" {
		return s.Output
	}
	return s.Name
}

// TracingEnabled reports whether the step's results go into history.
func (s Step) TracingEnabled() bool {
	return s.Tracing == nil || *s.Tracing
}

// FallbackStep returns the name of the recovery step, or "" if there is none.
func (s Step) FallbackStep() string {
	if s.Fallback != "" {
		return s.Fallback
	}
	return s.OnError
}

// Param returns a step parameter, or def when it is absent.
func (s Step) Param(key string, def any) any {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

// Bool returns a pointer to b, for Step.Tracing literals.
func Bool(b bool) *bool {
	return &b
}

// ValidateSteps checks a chain's step declarations and reports every problem found.
func ValidateSteps(steps []Step) error {
	var errs []error
	names := make(map[string]bool, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("step %d: name is required", i))
			continue
		}
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("step %q: duplicate name", s.Name))
		}
		names[s.Name] = true
		if s.Kind != "" && !s.Kind.Valid() {
			errs = append(errs, fmt.Errorf("step %q: unknown type %q", s.Name, s.Kind))
		}
		if s.Component == "" && !s.Kind.IsControl() {
			errs = append(errs, fmt.Errorf("step %q: component is required", s.Name))
		}
		if s.Fallback != "" && s.OnError != "" && s.Fallback != s.OnError {
			errs = append(errs, fmt.Errorf(
				"step %q: fallback %q and on_error %q disagree", s.Name, s.Fallback, s.OnError,
			))
		}
	}

	for _, s := range steps {
		fb := s.FallbackStep()
		if fb == "" || s.Name == "" {
			continue
		}
		if fb == s.Name {
			errs = append(errs, fmt.Errorf("step %q: cannot be its own fallback", s.Name))
			continue
		}
		if !names[fb] {
			errs = append(errs, fmt.Errorf("step %q: fallback %q not found in chain", s.Name, fb))
		}
	}
	return errors.Join(errs...)
}
