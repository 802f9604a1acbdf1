// Package schema compiles JSON Schemas and validates documents against them.
// Tool arguments and configuration files are both checked through it.
//
//	args := schema.MustCompile(schema.Object(map[string]*schema.Property{
//	    "query": schema.String("Search query"),
//	    "limit": schema.Integer("Max results").Min(1).Max(100).Default(10),
//	}, "query"))
//
//	if err := args.Validate(input); err != nil {
//	    return err
//	}
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a raw JSON Schema plus its compiled validator.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the schema document, e.g. for describing a tool to a model.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks v against the schema. v may be any JSON-encodable value;
// it is normalized through encoding/json first so that typed Go values
// ([]string, structs, int) validate like their JSON form. A nil Schema
// accepts everything.
func (s *Schema) Validate(v any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	doc, err := normalize(v)
	if err != nil {
		return &ValidationError{Err: err}
	}
	if err := s.compiled.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError reports a document that does not satisfy a schema.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Locations returns the instance locations of every leaf violation, as JSON
// pointers ("/chains/0/steps/1/name").
func (e *ValidationError) Locations() []string {
	var ve *jsonschema.ValidationError
	if !errors.As(e.Err, &ve) {
		return nil
	}
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			out = append(out, "/"+strings.Join(v.InstanceLocation, "/"))
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

// Compile compiles a schema document. A nil document yields a nil Schema.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return compile("schema.json", data, raw)
}

// CompileJSON compiles a schema from its JSON text. name identifies the
// resource in error messages.
func CompileJSON(name string, data []byte) (*Schema, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	return compile(name, data, raw)
}

// MustCompile is like Compile but panics on error.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func compile(name string, data []byte, raw map[string]any) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{raw: raw, compiled: compiled}, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// -----------------------------------------------------------------------------
// Builders
// -----------------------------------------------------------------------------

// Object builds an object schema. Names passed after properties are required.
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Property is one property of an object schema.
type Property struct {
	keywords map[string]any
}

func newProperty(typ, description string) *Property {
	p := &Property{keywords: map[string]any{"type": typ}}
	if description != "" {
		p.keywords["description"] = description
	}
	return p
}

func (p *Property) set(key string, value any) *Property {
	p.keywords[key] = value
	return p
}

func (p *Property) build() map[string]any {
	out := make(map[string]any, len(p.keywords))
	for k, v := range p.keywords {
		out[k] = v
	}
	return out
}

// String creates a string property.
func String(description string) *Property { return newProperty("string", description) }

// Integer creates an integer property.
func Integer(description string) *Property { return newProperty("integer", description) }

// Number creates a floating point property.
func Number(description string) *Property { return newProperty("number", description) }

// Boolean creates a boolean property.
func Boolean(description string) *Property { return newProperty("boolean", description) }

// Array creates an array property whose elements satisfy items.
//
//	schema.Array("Tags", map[string]any{"type": "string"})
func Array(description string, items map[string]any) *Property {
	return newProperty("array", description).set("items", items)
}

// Enum restricts the property to values.
func (p *Property) Enum(values ...any) *Property { return p.set("enum", values) }

// Format sets a string format such as "email", "uri" or "date-time".
func (p *Property) Format(format string) *Property { return p.set("format", format) }

// Min sets the inclusive minimum of a numeric property.
func (p *Property) Min(min float64) *Property { return p.set("minimum", min) }

// Max sets the inclusive maximum of a numeric property.
func (p *Property) Max(max float64) *Property { return p.set("maximum", max) }

// MinLength sets the minimum length of a string property.
func (p *Property) MinLength(n int) *Property { return p.set("minLength", n) }

// MaxLength sets the maximum length of a string property.
func (p *Property) MaxLength(n int) *Property { return p.set("maxLength", n) }

// Pattern sets a regular expression a string property must match.
func (p *Property) Pattern(pattern string) *Property { return p.set("pattern", pattern) }

// Default records the default value.
func (p *Property) Default(value any) *Property { return p.set("default", value) }
