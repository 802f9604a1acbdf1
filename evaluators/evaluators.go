// Package evaluators scores text for "evaluator" steps. Scores are in [0, 1].
package evaluators

import (
	"context"
	"strconv"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
)

// Score is the result of an evaluation.
type Score struct {
	Score   float64        `yaml:"score" json:"score"`
	Details map[string]any `yaml:"details,omitempty" json:"details,omitempty"`
}

// String formats the score for prompts and logs.
func (s Score) String() string {
	return strconv.FormatFloat(s.Score, 'f', -1, 64)
}

// outputAndReference splits an evaluator input. Maps may carry "output" and
// "reference"; anything else is the output alone.
func outputAndReference(input any) (string, string) {
	if m, ok := input.(map[string]any); ok {
		if out, ok := m["output"]; ok {
			return modular.Text(out), modular.Text(m["reference"])
		}
	}
	return modular.Text(input), ""
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// -----------------------------------------------------------------------------
// Similarity
// -----------------------------------------------------------------------------

// Similarity scores the word overlap between an output and a reference: the
// share of the reference's distinct words present in the output. With several
// references the best one counts. A "reference" in the input is used instead
// of References.
type Similarity struct {
	References []string `yaml:"references" json:"references" mapstructure:"references"`
}

var _ modular.Runnable = Similarity{}

// Evaluate scores output against the references.
func (e Similarity) Evaluate(output string, references ...string) Score {
	if len(references) == 0 {
		references = e.References
	}
	out := wordSet(output)

	best, bestRef := 0.0, ""
	for _, ref := range references {
		refSet := wordSet(ref)
		common := 0
		for w := range refSet {
			if _, ok := out[w]; ok {
				common++
			}
		}
		score := float64(common) / float64(max(1, len(refSet)))
		if score > best || bestRef == "" {
			best, bestRef = score, ref
		}
	}
	return Score{Score: best, Details: map[string]any{"reference": bestRef}}
}

// Execute implements modular.Runnable.
func (e Similarity) Execute(_ context.Context, input any) (any, error) {
	output, ref := outputAndReference(input)
	if ref != "" {
		return e.Evaluate(output, ref), nil
	}
	return e.Evaluate(output), nil
}

// -----------------------------------------------------------------------------
// Keyword
// -----------------------------------------------------------------------------

// Keyword scores the share of Keywords found in the output, ignoring case.
type Keyword struct {
	Keywords []string `yaml:"keywords" json:"keywords" mapstructure:"keywords"`
}

var _ modular.Runnable = Keyword{}

// Evaluate scores output.
func (e Keyword) Evaluate(output string) Score {
	lower := strings.ToLower(output)
	found := []string{}
	missing := []string{}
	for _, k := range e.Keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			found = append(found, k)
		} else {
			missing = append(missing, k)
		}
	}
	score := 0.0
	if len(e.Keywords) > 0 {
		score = float64(len(found)) / float64(len(e.Keywords))
	}
	return Score{Score: score, Details: map[string]any{"found": found, "missing": missing}}
}

// Execute implements modular.Runnable.
func (e Keyword) Execute(_ context.Context, input any) (any, error) {
	output, _ := outputAndReference(input)
	return e.Evaluate(output), nil
}
