// Package condition evaluates step conditions.
//
// Conditions are boolean expressions over the variables of an execution
// context, for example:
//
//	needs_summary == true && len(fetch) > 0
//	score >= 0.5 || mode == "strict"
//
// Expressions are compiled with expr-lang into a sandboxed program: they can
// read variables and use comparison, boolean, arithmetic and membership
// operators, but they cannot touch the filesystem, the network or process
// state.
package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrNotBoolean is returned when an expression does not produce a bool.
var ErrNotBoolean = errors.New("condition did not evaluate to a boolean")

// Evaluator evaluates a condition against a set of variables.
type Evaluator interface {
	Evaluate(expression string, vars map[string]any) (bool, error)
}

// EvaluatorFunc adapts a function to [Evaluator].
type EvaluatorFunc func(expression string, vars map[string]any) (bool, error)

// Evaluate calls f(expression, vars).
func (f EvaluatorFunc) Evaluate(expression string, vars map[string]any) (bool, error) {
	return f(expression, vars)
}

// ExprEvaluator evaluates conditions with expr-lang.
type ExprEvaluator struct {
	allowUndefined bool
}

// NewExprEvaluator returns an evaluator that rejects references to undefined
// variables.
func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{}
}

// AllowUndefined makes undefined variables evaluate as nil instead of failing.
func (e *ExprEvaluator) AllowUndefined() *ExprEvaluator {
	e.allowUndefined = true
	return e
}

// Evaluate compiles expression against vars and runs it. An empty expression
// is true.
func (e *ExprEvaluator) Evaluate(expression string, vars map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return true, nil
	}
	if vars == nil {
		vars = map[string]any{}
	}

	opts := []expr.Option{expr.Env(vars), expr.AsBool()}
	if e.allowUndefined {
		opts = append(opts, expr.AllowUndefinedVariables())
	}

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expression, err)
	}

	result, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBoolean, expression, result)
	}
	return b, nil
}
