// Package tools provides the runnables behind "tool" steps, and the Tool
// interface agents use to pick helpers for a prompt.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/schema"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidInput is returned when a tool input fails schema validation or
// cannot be decoded into the tool's input type.
var ErrInvalidInput = errors.New("invalid tool input")

// Tool is a runnable with a name, a description for models, a parameter
// schema, and a relevance check used by agents.
type Tool interface {
	modular.Runnable
	modular.Applicable

	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// ParameterSchema returns the JSON Schema of the tool's map input, or nil.
	ParameterSchema() map[string]any
}

// Func adapts a typed function into a Tool. Map inputs are validated against
// the parameter schema and decoded into I; other inputs are converted
// directly when they already have type I.
type Func[I, O any] struct {
	name        string
	description string
	schema      *schema.Schema
	keywords    []string
	fn          func(ctx context.Context, input I) (O, error)
}

var _ Tool = (*Func[string, string])(nil)

// NewFunc creates a Func. params may be nil for tools without a schema.
func NewFunc[I, O any](
	name, description string,
	params map[string]any,
	fn func(ctx context.Context, input I) (O, error),
) (*Func[I, O], error) {
	compiled, err := schema.Compile(params)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	return &Func[I, O]{
		name:        name,
		description: description,
		schema:      compiled,
		fn:          fn,
	}, nil
}

// WithKeywords makes ShouldUse match text containing any keyword.
func (t *Func[I, O]) WithKeywords(keywords ...string) *Func[I, O] {
	t.keywords = keywords
	return t
}

// Name returns the tool's identifier.
func (t *Func[I, O]) Name() string {
	return t.name
}

// Description returns a human-readable description for the LLM.
func (t *Func[I, O]) Description() string {
	return t.description
}

// ParameterSchema returns the JSON Schema of the tool's parameters.
func (t *Func[I, O]) ParameterSchema() map[string]any {
	return t.schema.Raw()
}

// ShouldUse implements modular.Applicable.
func (t *Func[I, O]) ShouldUse(text string) bool {
	return containsAny(text, t.keywords)
}

// Execute implements modular.Runnable.
func (t *Func[I, O]) Execute(ctx context.Context, input any) (any, error) {
	in, err := t.decode(input)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", t.name, err)
	}
	return t.fn(ctx, in)
}

func (t *Func[I, O]) decode(input any) (I, error) {
	var in I
	if typed, ok := input.(I); ok {
		if m, isMap := input.(map[string]any); isMap {
			if err := t.schema.Validate(m); err != nil {
				return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
			}
		}
		return typed, nil
	}

	if m, ok := input.(map[string]any); ok {
		if err := t.schema.Validate(m); err != nil {
			return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &in,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return in, err
	}
	if err := dec.Decode(input); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return in, nil
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
