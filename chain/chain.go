// Package chain implements the chain executor: it runs an ordered list of
// declared steps against one input value and one ExecutionContext, handling
// conditions, input mapping, fallback recovery and tracing.
package chain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/condition"
	"github.com/Emilio-01-T/Modular-2/hooks"
)

// DefaultMaxFallbackDepth is how many fallback hops a failure may take before
// the run fails with a fallback-exhausted error.
const DefaultMaxFallbackDepth = 1

// boundStep is a step declaration with its runnable resolved at build time.
type boundStep struct {
	step       modular.Step
	runnable   modular.Runnable
	resolveErr error
}

// Chain is a named, resolved sequence of steps.
//
// A Chain is built once with [New] and may then be run any number of times,
// concurrently, provided each run uses its own ExecutionContext.
//
// The Chain is responsible for:
//   - Running steps strictly in declaration order
//   - Skipping steps whose condition is false
//   - Recording results, errors and history in the ExecutionContext
//   - Dispatching to fallback steps and bounding fallback depth
//   - Invoking lifecycle hooks at each point
type Chain struct {
	name      string
	steps     []boundStep
	index     map[string]int
	hooks     *hooks.Registry
	evaluator condition.Evaluator
	logger    *slog.Logger

	maxFallbackDepth int
}

var _ modular.Runnable = (*Chain)(nil)

// New validates steps and resolves every step's runnable through resolver.
//
// Invalid declarations (duplicate names, unknown fallbacks, self fallbacks)
// fail construction. Components the resolver cannot find do not: they are
// remembered and reported as resolution failures when the step runs, where a
// fallback can still recover them.
func New(name string, steps []modular.Step, resolver modular.Resolver) (*Chain, error) {
	if err := modular.ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("chain %q: %w", name, err)
	}
	if resolver == nil && len(steps) > 0 {
		return nil, fmt.Errorf("chain %q: resolver is required", name)
	}

	c := &Chain{
		name:             name,
		steps:            make([]boundStep, len(steps)),
		index:            make(map[string]int, len(steps)),
		hooks:            hooks.NewRegistry(),
		evaluator:        condition.NewExprEvaluator(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFallbackDepth: DefaultMaxFallbackDepth,
	}

	for i, step := range steps {
		bs := boundStep{step: step}
		bs.runnable, bs.resolveErr = resolver.Resolve(step.Kind, step.Component)
		if bs.resolveErr == nil && bs.runnable == nil {
			bs.resolveErr = fmt.Errorf("%w: %s %q", modular.ErrUnknownComponent, step.Kind, step.Component)
		}
		c.steps[i] = bs
		c.index[step.Name] = i
	}
	return c, nil
}

// Run builds a chain from steps and runs it once. It is a convenience for
// callers that do not reuse the chain.
func Run(
	ctx context.Context,
	resolver modular.Resolver,
	input any,
	steps []modular.Step,
	execCtx *modular.ExecutionContext,
) (any, error) {
	c, err := New("", steps, resolver)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, input, execCtx)
}

// WithHooks replaces the chain's hook registry. Use this to share one registry
// across chains. Returns the chain for chaining.
func (c *Chain) WithHooks(h *hooks.Registry) *Chain {
	if h != nil {
		c.hooks = h
	}
	return c
}

// RegisterHook adds a hook to the chain's existing registry.
// Returns the chain for chaining.
func (c *Chain) RegisterHook(hook any) *Chain {
	c.hooks.Register(hook)
	return c
}

// WithEvaluator replaces the condition evaluator.
func (c *Chain) WithEvaluator(e condition.Evaluator) *Chain {
	if e != nil {
		c.evaluator = e
	}
	return c
}

// WithLogger sets the logger.
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	if logger != nil {
		c.logger = logger.With("chain", c.name)
	}
	return c
}

// WithMaxFallbackDepth sets how many fallback hops a failure may take.
// Zero disables recovery: any declared fallback is reported as exhausted.
func (c *Chain) WithMaxFallbackDepth(depth int) *Chain {
	c.maxFallbackDepth = max(depth, 0)
	return c
}

// Name returns the chain's name.
func (c *Chain) Name() string {
	return c.name
}

// Steps returns a copy of the chain's step declarations.
func (c *Chain) Steps() []modular.Step {
	out := make([]modular.Step, len(c.steps))
	for i, bs := range c.steps {
		out[i] = bs.step
	}
	return out
}

// Execute implements modular.Runnable so a chain can be a step of another
// chain. The ExecutionContext carried by ctx is reused when present.
func (c *Chain) Execute(ctx context.Context, input any) (any, error) {
	execCtx, _ := modular.ExecutionContextFrom(ctx)
	return c.Run(ctx, input, execCtx)
}

// Run executes the chain's steps in order against input.
//
// The result is the output of the last step that executed, after fallback
// recovery. An empty chain, or one whose steps are all skipped, returns input
// unchanged. A nil execCtx runs against a fresh context.
//
// A step failure without a fallback terminates the run; the returned error is
// a *modular.StepError. A failure whose fallback also fails returns a
// *modular.FallbackExhaustedError wrapping both.
func (c *Chain) Run(ctx context.Context, input any, execCtx *modular.ExecutionContext) (out any, err error) {
	if execCtx == nil {
		execCtx = modular.NewExecutionContext()
	}
	ctx = modular.WithExecutionContext(ctx, execCtx)

	start := time.Now()
	c.hooks.FireChainStart(ctx, execCtx, modular.ChainStartEvent{
		Chain: c.name,
		Input: input,
		Steps: len(c.steps),
	})
	defer func() {
		c.hooks.FireChainEnd(ctx, execCtx, modular.ChainEndEvent{
			Chain:    c.name,
			Output:   out,
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	data := input
	for i := range c.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, skipped, err := c.runStep(ctx, &c.steps[i], data, execCtx, 0)
		if err != nil {
			c.logger.Error("chain failed", "step", c.steps[i].step.Name, "error", err)
			return nil, err
		}
		if !skipped {
			data = result
		}
	}
	return data, nil
}

// runStep executes one step at the given fallback depth. skipped is true when
// the step's condition was false; result is then meaningless.
func (c *Chain) runStep(
	ctx context.Context,
	bs *boundStep,
	data any,
	execCtx *modular.ExecutionContext,
	depth int,
) (result any, skipped bool, err error) {
	step := bs.step

	if step.Condition != "" {
		ok, evalErr := c.evaluator.Evaluate(step.Condition, execCtx.Variables())
		if evalErr != nil {
			return c.fail(ctx, bs, data, execCtx, depth,
				modular.NewStepError(step.Name, modular.ErrorKindCondition, evalErr))
		}
		c.hooks.FireCondition(ctx, execCtx, modular.ConditionEvent{
			Chain:     c.name,
			Step:      step,
			Condition: step.Condition,
			Result:    ok,
		})
		if !ok {
			c.logger.Debug("step skipped", "step", step.Name, "condition", step.Condition)
			return nil, true, nil
		}
	}

	c.hooks.FireStepStart(ctx, execCtx, modular.StepStartEvent{
		Chain: c.name,
		Step:  step,
		Input: data,
		Depth: depth,
	})

	stepInput, inputErr := modular.ResolveInput(step.Input, data, execCtx)
	if inputErr != nil {
		return c.fail(ctx, bs, data, execCtx, depth,
			modular.NewStepError(step.Name, modular.ErrorKindExecution, fmt.Errorf("input: %w", inputErr)))
	}

	if bs.resolveErr != nil {
		return c.fail(ctx, bs, stepInput, execCtx, depth,
			modular.NewStepError(step.Name, modular.ErrorKindResolution, bs.resolveErr))
	}

	start := time.Now()
	output, execErr := bs.runnable.Execute(modular.WithStep(ctx, step), stepInput)
	if execErr != nil {
		return c.fail(ctx, bs, stepInput, execCtx, depth,
			modular.NewStepError(step.Name, modular.ErrorKindExecution, execErr))
	}
	duration := time.Since(start)

	execCtx.Set(step.OutputVariable(), output)
	if step.TracingEnabled() {
		execCtx.RecordHistory(step.Name, output)
	}
	c.hooks.FireStepEnd(ctx, execCtx, modular.StepEndEvent{
		Chain:    c.name,
		Step:     step,
		Input:    stepInput,
		Output:   output,
		Depth:    depth,
		Duration: duration,
	})
	c.logger.Debug("step completed", "step", step.Name, "duration", duration, "depth", depth)
	return output, false, nil
}

// fail records stepErr and either recovers through the step's fallback or
// returns the failure. input is what the failed step was (or would have been)
// invoked with; the fallback receives the same value.
func (c *Chain) fail(
	ctx context.Context,
	bs *boundStep,
	input any,
	execCtx *modular.ExecutionContext,
	depth int,
	stepErr *modular.StepError,
) (any, bool, error) {
	step := bs.step
	execCtx.RecordError(step.Name, stepErr)
	c.hooks.FireError(ctx, execCtx, modular.ErrorEvent{
		Chain: c.name,
		Step:  step,
		Err:   stepErr,
		Depth: depth,
	})
	c.logger.Warn("step failed", "step", step.Name, "kind", stepErr.Kind, "error", stepErr.Err)

	fallback := step.FallbackStep()
	if fallback == "" {
		return nil, false, stepErr
	}
	if depth >= c.maxFallbackDepth {
		return nil, false, &modular.FallbackExhaustedError{
			Step:        step.Name,
			Fallback:    fallback,
			Original:    stepErr,
			FallbackErr: fmt.Errorf("%w (%d)", modular.ErrFallbackDepth, c.maxFallbackDepth),
		}
	}

	idx, ok := c.index[fallback]
	if !ok {
		// New rejects unknown fallbacks; this only guards hand-built chains.
		return nil, false, &modular.FallbackExhaustedError{
			Step:        step.Name,
			Fallback:    fallback,
			Original:    stepErr,
			FallbackErr: fmt.Errorf("%w: fallback step %q", modular.ErrUnknownComponent, fallback),
		}
	}

	c.hooks.FireFallback(ctx, execCtx, modular.FallbackEvent{
		Chain:    c.name,
		Step:     step,
		Fallback: fallback,
		Err:      stepErr,
		Depth:    depth + 1,
	})
	c.logger.Info("running fallback", "step", step.Name, "fallback", fallback)

	result, skipped, err := c.runStep(ctx, &c.steps[idx], input, execCtx, depth+1)
	if err != nil {
		return nil, false, &modular.FallbackExhaustedError{
			Step:        step.Name,
			Fallback:    fallback,
			Original:    stepErr,
			FallbackErr: err,
		}
	}
	if skipped {
		return input, false, nil
	}
	return result, false, nil
}
