// Package modular is a configurable orchestration layer for language-model-backed
// agents. Its core is the chain engine: an ordered list of declared steps is
// resolved to [Runnable] units once, then executed against one input value while
// an [ExecutionContext] threads variables, history and errors between them.
//
// # Quick Start
//
//	reg := registry.New()
//	reg.Register(modular.KindTool, "fetch", fetchTool)
//	reg.Register(modular.KindLLM, "writer", models.NewLLM("writer", wrapper))
//
//	c, err := chain.New("summarize", []modular.Step{
//	    {Name: "fetch", Kind: modular.KindTool, Component: "fetch"},
//	    {Name: "summary", Kind: modular.KindLLM, Component: "writer", Fallback: "fetch"},
//	}, reg)
//	if err != nil {
//	    return err
//	}
//
//	execCtx := modular.NewExecutionContext()
//	out, err := c.Run(ctx, "query", execCtx)
//
// # Packages
//
//   - [github.com/Emilio-01-T/Modular-2/chain] runs steps, conditions and fallbacks
//   - [github.com/Emilio-01-T/Modular-2/registry] resolves (kind, component) pairs
//   - [github.com/Emilio-01-T/Modular-2/hooks] dispatches lifecycle events to callbacks
//   - [github.com/Emilio-01-T/Modular-2/config] loads and validates YAML configuration
//   - [github.com/Emilio-01-T/Modular-2/builder] assembles a runtime from configuration
package modular
