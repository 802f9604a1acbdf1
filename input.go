package modular

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// InputVariable is the reference name that resolves to the chain's running data.
const InputVariable = "input"

// ResolveInput builds a step input from its mapping.
//
// Strings of the form "$name" or "$name.field.sub" reference context
// variables, descending into map values for each dotted segment. "$input"
// references data, the running value of the chain, unless a variable named
// "input" exists. A leading "$$" escapes a literal dollar sign. Maps and slices
// are resolved element by element; any other value is a literal.
//
// A nil mapping returns data unchanged. A reference to a missing variable or
// field returns an error wrapping [ErrUnresolvedReference].
func ResolveInput(mapping any, data any, execCtx *ExecutionContext) (any, error) {
	if mapping == nil {
		return data, nil
	}
	return resolveValue(mapping, data, execCtx)
}

func resolveValue(v any, data any, execCtx *ExecutionContext) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, data, execCtx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveValue(item, data, execCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, data, execCtx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveString(s string, data any, execCtx *ExecutionContext) (any, error) {
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}
	if !strings.HasPrefix(s, "$") || len(s) == 1 {
		return s, nil
	}

	path := strings.Split(s[1:], ".")
	root, ok := lookupRoot(path[0], data, execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, s)
	}

	current := root
	for _, field := range path[1:] {
		next, ok := lookupField(current, field)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, s)
		}
		current = next
	}
	return current, nil
}

func lookupRoot(name string, data any, execCtx *ExecutionContext) (any, bool) {
	if execCtx != nil {
		if v, ok := execCtx.Lookup(name); ok {
			return v, true
		}
	}
	if name == InputVariable {
		return data, true
	}
	return nil, false
}

// lookupField looks up a single field in a map-like value.
func lookupField(v any, field string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out, ok := m[field]
		return out, ok
	case map[string]string:
		out, ok := m[field]
		return out, ok
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !out.IsValid() {
			return nil, false
		}
		return out.Interface(), true
	}
	return nil, false
}

// promptKeys are checked in order when converting a map input to text.
var promptKeys = []string{"prompt", "input", "query", "text", "content"}

// Text converts a step input to prompt text. Strings are returned as-is, maps
// use their first prompt-like key, string slices are joined by newlines and
// anything else is formatted with fmt. Maps without a prompt-like key render
// as sorted "key: value" lines.
func Text(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []string:
		return strings.Join(v, "\n")
	case map[string]any:
		for _, k := range promptKeys {
			if s, ok := v[k]; ok {
				return Text(s)
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", k, Text(v[k])))
		}
		return strings.Join(lines, "\n")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, Text(item))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(v)
	}
}
