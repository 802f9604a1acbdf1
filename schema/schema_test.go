package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	s, err := Compile(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, s.Raw())

	s, err = Compile(map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.Equal(t, "object", s.Raw()["type"])

	_, err = Compile(map[string]any{"type": 12})
	assert.Error(t, err)
}

func TestCompileJSON(t *testing.T) {
	s, err := CompileJSON("limits.json", []byte(`{"type":"integer","minimum":1}`))
	require.NoError(t, err)
	assert.NoError(t, s.Validate(3))
	assert.Error(t, s.Validate(0))

	_, err = CompileJSON("broken.json", []byte(`{"type":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestSchema_Validate(t *testing.T) {
	type input struct {
		schema map[string]any
		data   any
	}

	type expected struct {
		hasErr    bool
		locations []string
	}

	person := Object(map[string]*Property{
		"name": String("Name").MinLength(1),
		"age":  Integer("Age").Min(0).Max(150),
		"tags": Array("Tags", map[string]any{"type": "string"}),
	}, "name")

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "valid map",
			input:    input{schema: person, data: map[string]any{"name": "Ada", "age": 36}},
			expected: expected{},
		},
		{
			name: "typed go values are normalized",
			input: input{
				schema: person,
				data:   map[string]any{"name": "Ada", "age": int64(36), "tags": []string{"math"}},
			},
			expected: expected{},
		},
		{
			name: "struct document",
			input: input{
				schema: person,
				data: struct {
					Name string `json:"name"`
				}{Name: "Ada"},
			},
			expected: expected{},
		},
		{
			name:     "missing required field",
			input:    input{schema: person, data: map[string]any{}},
			expected: expected{hasErr: true, locations: []string{"/"}},
		},
		{
			name:     "wrong nested type",
			input:    input{schema: person, data: map[string]any{"name": "Ada", "tags": []any{"a", 2}}},
			expected: expected{hasErr: true, locations: []string{"/tags/1"}},
		},
		{
			name:     "out of range",
			input:    input{schema: person, data: map[string]any{"name": "Ada", "age": 200}},
			expected: expected{hasErr: true, locations: []string{"/age"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.input.schema)
			require.NoError(t, err)

			err = s.Validate(tt.input.data)
			if !tt.expected.hasErr {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
			assert.Equal(t, tt.expected.locations, verr.Locations())
		})
	}
}

func TestSchema_Validate_NilSchema(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate(map[string]any{"foo": "bar"}))
}

func TestSchema_Validate_Unencodable(t *testing.T) {
	s := MustCompile(map[string]any{"type": "object"})
	err := s.Validate(map[string]any{"ch": make(chan int)})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Nil(t, verr.Locations())
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(map[string]any{"type": 12})
	})
}

func TestBuilders(t *testing.T) {
	tests := []struct {
		name     string
		prop     *Property
		expected map[string]any
	}{
		{
			name: "string constraints",
			prop: String("Email").MinLength(1).MaxLength(100).Pattern("^.+@.+$").Format("email"),
			expected: map[string]any{
				"type": "string", "description": "Email",
				"minLength": 1, "maxLength": 100, "pattern": "^.+@.+$", "format": "email",
			},
		},
		{
			name:     "integer range",
			prop:     Integer("Count").Min(0).Max(10).Default(5),
			expected: map[string]any{"type": "integer", "description": "Count", "minimum": 0.0, "maximum": 10.0, "default": 5},
		},
		{
			name:     "number without description",
			prop:     Number(""),
			expected: map[string]any{"type": "number"},
		},
		{
			name:     "boolean enum",
			prop:     Boolean("Flag").Enum(true),
			expected: map[string]any{"type": "boolean", "description": "Flag", "enum": []any{true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.prop.build())
		})
	}
}

func TestObject(t *testing.T) {
	obj := Object(map[string]*Property{
		"a": String("A"),
	}, "a")
	assert.Equal(t, map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "string", "description": "A"}},
		"required":   []string{"a"},
	}, obj)

	_, hasRequired := Object(nil)["required"]
	assert.False(t, hasRequired)
}
