// Package pipeline composes chains. A pipeline runs its chains in order over
// one shared ExecutionContext, feeding each chain's output to the next.
package pipeline

import (
	"context"
	"fmt"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/chain"
)

// Pipeline is a named, ordered collection of chains.
type Pipeline struct {
	name   string
	chains []*chain.Chain
}

var _ modular.Runnable = (*Pipeline)(nil)

// New creates a pipeline over chains.
func New(name string, chains ...*chain.Chain) *Pipeline {
	return &Pipeline{name: name, chains: chains}
}

// Name returns the pipeline's name.
func (p *Pipeline) Name() string {
	return p.name
}

// Chains returns the names of the pipeline's chains in run order.
func (p *Pipeline) Chains() []string {
	out := make([]string, len(p.chains))
	for i, c := range p.chains {
		out[i] = c.Name()
	}
	return out
}

// Run executes every chain in order. The first failing chain stops the run;
// its error is returned wrapped with the chain name. A nil execCtx runs
// against a fresh context.
func (p *Pipeline) Run(ctx context.Context, input any, execCtx *modular.ExecutionContext) (any, error) {
	if execCtx == nil {
		execCtx = modular.NewExecutionContext()
	}

	data := input
	for _, c := range p.chains {
		out, err := c.Run(ctx, data, execCtx)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: chain %q: %w", p.name, c.Name(), err)
		}
		data = out
	}
	return data, nil
}

// Execute implements modular.Runnable, reusing the ExecutionContext carried
// by ctx when present.
func (p *Pipeline) Execute(ctx context.Context, input any) (any, error) {
	execCtx, _ := modular.ExecutionContextFrom(ctx)
	return p.Run(ctx, input, execCtx)
}
