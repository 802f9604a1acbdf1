// Package parsers extracts structured data from model output for "parser"
// steps.
package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/schema"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoJSON is returned when no JSON value can be found in the input.
	ErrNoJSON = errors.New("no JSON value found")

	// ErrNoMatch is returned when a Regex pattern does not match.
	ErrNoMatch = errors.New("pattern did not match")
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")

// unfence returns the body of the first fenced code block, or text itself.
func unfence(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// -----------------------------------------------------------------------------
// JSON
// -----------------------------------------------------------------------------

// JSON extracts the first JSON object or array from text. Surrounding prose
// and markdown fences are ignored. With a Schema the value is validated.
type JSON struct {
	Schema *schema.Schema
}

var _ modular.Runnable = JSON{}

// Parse extracts and decodes the JSON value in text.
func (p JSON) Parse(text string) (any, error) {
	text = strings.TrimSpace(unfence(text))

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		v, err = firstJSON(text)
		if err != nil {
			return nil, err
		}
	}
	if err := p.Schema.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Execute implements modular.Runnable.
func (p JSON) Execute(_ context.Context, input any) (any, error) {
	return p.Parse(modular.Text(input))
}

// firstJSON decodes the first value starting at a '{' or '[' that parses.
func firstJSON(text string) (any, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(text[i:])))
		var v any
		if err := dec.Decode(&v); err == nil {
			return v, nil
		}
	}
	return nil, ErrNoJSON
}

// -----------------------------------------------------------------------------
// YAML
// -----------------------------------------------------------------------------

// YAML decodes text, or its first fenced block, as a YAML document.
type YAML struct{}

var _ modular.Runnable = YAML{}

// Parse decodes the YAML document in text.
func (YAML) Parse(text string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(unfence(text)), &v); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return v, nil
}

// Execute implements modular.Runnable.
func (p YAML) Execute(_ context.Context, input any) (any, error) {
	return p.Parse(modular.Text(input))
}

// -----------------------------------------------------------------------------
// Regex
// -----------------------------------------------------------------------------

// Regex extracts matches of a pattern. A pattern with named groups yields a
// map of the first match's groups. Otherwise every match is returned as a
// []string: the first group when the pattern has groups, the whole match
// when it has none.
type Regex struct {
	re *regexp.Regexp
}

var _ modular.Runnable = (*Regex)(nil)

// NewRegex compiles pattern.
func NewRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex parser: %w", err)
	}
	return &Regex{re: re}, nil
}

// Parse applies the pattern to text.
func (p *Regex) Parse(text string) (any, error) {
	if hasNamedGroups(p.re) {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			return nil, ErrNoMatch
		}
		out := make(map[string]any)
		for i, name := range p.re.SubexpNames() {
			if name != "" {
				out[name] = m[i]
			}
		}
		return out, nil
	}

	matches := p.re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}
	group := 0
	if p.re.NumSubexp() > 0 {
		group = 1
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[group]
	}
	return out, nil
}

// Execute implements modular.Runnable.
func (p *Regex) Execute(_ context.Context, input any) (any, error) {
	return p.Parse(modular.Text(input))
}

func hasNamedGroups(re *regexp.Regexp) bool {
	for _, name := range re.SubexpNames() {
		if name != "" {
			return true
		}
	}
	return false
}
