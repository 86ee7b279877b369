package stdlib

import (
	"context"
	"math"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

// String(value) → string
func stdlibString(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	if call.Args.Len() == 0 {
		return evaluator.NewString(""), nil
	}
	return evaluator.NewString(evaluator.ToString(call.Args.Get(0))), nil
}

// Number(value) → number
func stdlibNumber(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	if call.Args.Len() == 0 {
		return evaluator.NewNumber(0), nil
	}
	return evaluator.NewNumber(evaluator.ToNumber(call.Args.Get(0))), nil
}

// isNaN(value) → bool
func stdlibIsNaN(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	return evaluator.NewBool(math.IsNaN(evaluator.ToNumber(call.Args.Get(0)))), nil
}
