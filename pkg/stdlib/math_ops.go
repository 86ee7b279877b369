package stdlib

import (
	"context"
	"math"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

func newMath() *evaluator.Object {
	m := namespace(
		native("max", 2, stdlibMathMax),
		native("min", 2, stdlibMathMin),
		unary("abs", math.Abs),
		unary("floor", math.Floor),
		unary("ceil", math.Ceil),
		unary("round", func(x float64) float64 { return math.Floor(x + 0.5) }),
		unary("sqrt", math.Sqrt),
	)
	m.Set("PI", evaluator.NewNumber(math.Pi))
	return m
}

func unary(name string, f func(float64) float64) *evaluator.NativeFunction {
	return native(name, 1, func(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
		return evaluator.NewNumber(f(evaluator.ToNumber(call.Args.Get(0)))), nil
	})
}

// Math.max(...values) → number; -Infinity with no arguments
func stdlibMathMax(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	max := math.Inf(-1)
	for _, v := range call.Args.Values() {
		n := evaluator.ToNumber(v)
		if math.IsNaN(n) {
			return evaluator.NewNumber(math.NaN()), nil
		}
		if n > max {
			max = n
		}
	}
	return evaluator.NewNumber(max), nil
}

// Math.min(...values) → number; Infinity with no arguments
func stdlibMathMin(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	min := math.Inf(1)
	for _, v := range call.Args.Values() {
		n := evaluator.ToNumber(v)
		if math.IsNaN(n) {
			return evaluator.NewNumber(math.NaN()), nil
		}
		if n < min {
			min = n
		}
	}
	return evaluator.NewNumber(min), nil
}
