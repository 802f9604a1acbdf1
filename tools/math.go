package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	modular "github.com/Emilio-01-T/Modular-2"
	"github.com/Emilio-01-T/Modular-2/schema"
	"github.com/expr-lang/expr"
)

var (
	// ErrNoExpression is returned when no arithmetic can be found in the input.
	ErrNoExpression = errors.New("no arithmetic expression found")

	// ErrInvalidExpression is returned for expressions with non-arithmetic
	// content or a non-finite result.
	ErrInvalidExpression = errors.New("invalid arithmetic expression")
)

var (
	// An operand may carry a unary minus: "-5 + 3", "2 - -3", "2 * (-4)".
	operandPattern = `[(\s]*(?:-\s*)?[\d.()\s]*\d[\d.()\s]*`
	arithmeticRe   = regexp.MustCompile(operandPattern + `(?:(?:\*\*|[-+*/%^])` + operandPattern + `)+`)
	allowedRe    = regexp.MustCompile(`^[\d.()\s+\-*/%^]+$`)
	inlineMathRe = regexp.MustCompile(`\d+\s*[-+*/]\s*\d+`)
)

var mathKeywords = []string{
	"calcola", "calculate", "compute", "math", "matematica",
	"somma", "sum", "sottrai", "subtract", "moltiplica", "multiply", "dividi", "divide",
}

var operations = map[string]string{
	"add":      "+",
	"subtract": "-",
	"multiply": "*",
	"divide":   "/",
	"modulo":   "%",
	"power":    "**",
}

// Math evaluates arithmetic found in its input. It accepts
//
//   - {"expression": "2 * (3 + 4)"}
//   - {"operation": "add", "a": 2, "b": 3}
//   - {"prompt": "quanto fa 12 / 4?"} or any map with a string value containing arithmetic
//   - plain text containing arithmetic
//
// and returns the result as a float64.
type Math struct{}

var _ Tool = Math{}

// NewMath creates the math tool.
func NewMath() Math {
	return Math{}
}

func (Math) Name() string { return "math" }

func (Math) Description() string {
	return "Evaluates arithmetic expressions with + - * / % ** and parentheses"
}

func (Math) ParameterSchema() map[string]any {
	return schema.Object(map[string]*schema.Property{
		"expression": schema.String("Arithmetic expression, e.g. 2 * (3 + 4)"),
		"operation":  schema.String("Binary operation").Enum("add", "subtract", "multiply", "divide", "modulo", "power"),
		"a":          schema.Number("Left operand"),
		"b":          schema.Number("Right operand"),
	})
}

// ShouldUse reports whether text mentions a calculation or contains inline
// arithmetic such as "3 + 4".
func (Math) ShouldUse(text string) bool {
	return containsAny(text, mathKeywords) || inlineMathRe.MatchString(text)
}

// Execute implements modular.Runnable.
func (m Math) Execute(_ context.Context, input any) (any, error) {
	expression := ExtractExpression(input)
	if expression == "" {
		return nil, ErrNoExpression
	}
	return Calculate(expression)
}

// ExtractExpression finds the arithmetic expression in a tool input.
func ExtractExpression(input any) string {
	switch v := input.(type) {
	case string:
		return findArithmetic(v)
	case map[string]any:
		if e, ok := v["expression"]; ok {
			return strings.TrimSpace(modular.Text(e))
		}
		if op, ok := v["operation"].(string); ok {
			a, hasA := v["a"]
			b, hasB := v["b"]
			if sym, known := operations[strings.ToLower(op)]; known && hasA && hasB {
				return fmt.Sprintf("%v %s %v", a, sym, b)
			}
		}
		if p, ok := v["prompt"].(string); ok {
			if found := findArithmetic(p); found != "" {
				return found
			}
		}
		for _, val := range v {
			if s, ok := val.(string); ok {
				if found := findArithmetic(s); found != "" {
					return found
				}
			}
		}
		return ""
	default:
		return findArithmetic(modular.Text(input))
	}
}

// findArithmetic returns the longest arithmetic run in text.
func findArithmetic(text string) string {
	var best string
	for _, m := range arithmeticRe.FindAllString(text, -1) {
		m = strings.TrimRight(strings.TrimSpace(m), ". ")
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

// Calculate evaluates an arithmetic expression. Only numbers, parentheses and
// the operators + - * / % ** ^ are accepted. % takes fractional operands and
// follows the sign of the dividend, like math.Mod.
func Calculate(expression string) (float64, error) {
	expression = strings.TrimSpace(expression)
	if !allowedRe.MatchString(expression) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpression, expression)
	}

	program, err := expr.Compile(expression,
		expr.AsFloat64(),
		expr.Function("fmod", fmod,
			new(func(float64, float64) float64),
			new(func(float64, int) float64),
			new(func(int, float64) float64),
		),
		expr.Operator("%", "fmod"),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	result, ok := out.(float64)
	if !ok || math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("%w: %q has no finite result", ErrInvalidExpression, expression)
	}
	return result, nil
}

// fmod backs % when either operand is fractional; integer % stays native.
func fmod(params ...any) (any, error) {
	a, b := toFloat64(params[0]), toFloat64(params[1])
	if b == 0 {
		return nil, errors.New("modulo by zero")
	}
	return math.Mod(a, b), nil
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}
