package splitters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords_Split(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		text     string
		expected []string
	}{
		{name: "empty", size: 2, text: "  ", expected: []string{}},
		{name: "exact chunks", size: 2, text: "a b c d", expected: []string{"a b", "c d"}},
		{name: "remainder", size: 3, text: "a  b\nc d", expected: []string{"a b c", "d"}},
		{name: "default size", size: 0, text: "one two", expected: []string{"one two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Words{ChunkSize: tt.size}.Split(tt.text))
		})
	}
}

func TestLines_Split(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "empty", text: "", expected: []string{}},
		{name: "trailing newline", text: "a\nb\n", expected: []string{"a", "b"}},
		{name: "blank line kept", text: "a\n\nb", expected: []string{"a", "", "b"}},
		{name: "crlf", text: "a\r\nb", expected: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Lines{}.Split(tt.text))
		})
	}
}

func TestSplitters_Execute(t *testing.T) {
	out, err := Words{ChunkSize: 1}.Execute(context.Background(), map[string]any{"text": "x y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out)

	out, err = Lines{}.Execute(context.Background(), "x\ny")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out)
}
