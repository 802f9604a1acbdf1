// Package splitters chunks text for "splitter" steps. Every splitter takes
// the step input as text and returns a []string.
package splitters

import (
	"context"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
)

// DefaultChunkSize is the Words chunk size when none is set.
const DefaultChunkSize = 50

// Splitter cuts text into chunks.
type Splitter interface {
	modular.Runnable
	Split(text string) []string
}

// Words groups whitespace-separated words into chunks of ChunkSize words.
type Words struct {
	ChunkSize int `yaml:"chunk_size" json:"chunk_size" mapstructure:"chunk_size"`
}

var _ Splitter = Words{}

// Split implements Splitter.
func (w Words) Split(text string) []string {
	size := w.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		chunks = append(chunks, strings.Join(words[i:min(i+size, len(words))], " "))
	}
	return chunks
}

// Execute implements modular.Runnable.
func (w Words) Execute(_ context.Context, input any) (any, error) {
	return w.Split(modular.Text(input)), nil
}

// Lines splits text on line breaks. Blank lines are kept; a trailing line
// break does not produce an empty final chunk.
type Lines struct{}

var _ Splitter = Lines{}

// Split implements Splitter.
func (Lines) Split(text string) []string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

// Execute implements modular.Runnable.
func (l Lines) Execute(_ context.Context, input any) (any, error) {
	return l.Split(modular.Text(input)), nil
}
