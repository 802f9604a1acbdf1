// Package retrievers finds documents relevant to a query for "retriever"
// steps, optionally handing them to a model (retrieval augmented generation).
package retrievers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	modular "github.com/Emilio-01-T/Modular-2"
)

// DefaultTopK is the number of documents returned when TopK is not set.
const DefaultTopK = 3

// Document is a retrievable text.
type Document struct {
	ID       string         `yaml:"id" json:"id"`
	Content  string         `yaml:"content" json:"content"`
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Score    float64        `yaml:"score,omitempty" json:"score,omitempty"`
}

// Retriever returns the documents most relevant to query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// Contents returns the text of each document.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

// LoadFiles reads each path as one document whose ID is the file's base name.
func LoadFiles(paths ...string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		docs = append(docs, Document{
			ID:       filepath.Base(p),
			Content:  string(data),
			Metadata: map[string]any{"source": p},
		})
	}
	return docs, nil
}

// -----------------------------------------------------------------------------
// Keyword
// -----------------------------------------------------------------------------

// Keyword is an in-memory retriever ranking documents by the share of query
// words they contain. Documents sharing no word with the query are dropped;
// ties keep insertion order.
type Keyword struct {
	mu   sync.RWMutex
	docs []Document
	topK int
}

var (
	_ Retriever        = (*Keyword)(nil)
	_ modular.Runnable = (*Keyword)(nil)
)

// NewKeyword creates a Keyword retriever over docs.
func NewKeyword(docs ...Document) *Keyword {
	k := &Keyword{topK: DefaultTopK}
	k.Add(docs...)
	return k
}

// WithTopK sets the maximum number of results.
func (k *Keyword) WithTopK(n int) *Keyword {
	if n > 0 {
		k.topK = n
	}
	return k
}

// Add indexes documents. Documents without an ID get "doc_<n>".
func (k *Keyword) Add(docs ...Document) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc_%d", len(k.docs))
		}
		k.docs = append(k.docs, d)
	}
}

// Len returns the number of indexed documents.
func (k *Keyword) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

// Retrieve implements Retriever.
func (k *Keyword) Retrieve(_ context.Context, query string) ([]Document, error) {
	terms := uniqueWords(query)
	if len(terms) == 0 {
		return []Document{}, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	var scored []Document
	for _, d := range k.docs {
		words := make(map[string]struct{})
		for _, w := range uniqueWords(d.Content) {
			words[w] = struct{}{}
		}
		hits := 0
		for _, t := range terms {
			if _, ok := words[t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		d.Score = float64(hits) / float64(len(terms))
		scored = append(scored, d)
	}

	slices.SortStableFunc(scored, func(a, b Document) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(scored) > k.topK {
		scored = scored[:k.topK]
	}
	if scored == nil {
		scored = []Document{}
	}
	return scored, nil
}

// Execute implements modular.Runnable, returning the matching contents.
func (k *Keyword) Execute(ctx context.Context, input any) (any, error) {
	docs, err := k.Retrieve(ctx, modular.Text(input))
	if err != nil {
		return nil, err
	}
	return Contents(docs), nil
}

func uniqueWords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if _, ok := seen[w]; !ok {
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// RAG
// -----------------------------------------------------------------------------

// RAG retrieves documents for a query and asks a model to answer with them.
// Without a model it returns the document contents.
type RAG struct {
	retriever Retriever
	model     modular.Runnable
}

var _ modular.Runnable = (*RAG)(nil)

// NewRAG creates a RAG runnable. model may be nil.
func NewRAG(retriever Retriever, model modular.Runnable) *RAG {
	return &RAG{retriever: retriever, model: model}
}

// Prompt builds the question prompt over docs.
func Prompt(query string, docs []Document) string {
	var b strings.Builder
	b.WriteString("Answer using these documents:\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s\n", d.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// Execute implements modular.Runnable. The params of the calling step are not
// forwarded to the model.
func (r *RAG) Execute(ctx context.Context, input any) (any, error) {
	query := modular.Text(input)
	docs, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if r.model == nil {
		return Contents(docs), nil
	}
	return r.model.Execute(modular.WithoutStep(ctx), Prompt(query, docs))
}
