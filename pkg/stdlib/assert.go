package stdlib

import (
	"context"
	"fmt"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

// newAssert builds the assert module. The module is itself callable as
// assert(value, message) and carries the comparison helpers as properties.
func newAssert() *evaluator.NativeFunction {
	ok := func(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
		return record(call, evaluator.Truthy(call.Args.Get(0)), call.Args.Get(1),
			"The expression evaluated to a falsy value")
	}

	return native("assert", 2, ok).
		WithProp("ok", native("ok", 2, ok)).
		WithProp("equal", comparison("equal", "==", evaluator.LooseEquals, true)).
		WithProp("notEqual", comparison("notEqual", "!=", evaluator.LooseEquals, false)).
		WithProp("strictEqual", comparison("strictEqual", "===", evaluator.StrictEquals, true)).
		WithProp("notStrictEqual", comparison("notStrictEqual", "!==", evaluator.StrictEquals, false)).
		WithProp("fail", native("fail", 1, func(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
			return record(call, false, call.Args.Get(0), "Failed")
		}))
}

// comparison builds assert.equal and friends: (actual, expected, message).
func comparison(name, op string, eq func(a, b evaluator.Value) bool, want bool) *evaluator.NativeFunction {
	return native(name, 3, func(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
		actual, expected := call.Args.Get(0), call.Args.Get(1)
		defaultMsg := fmt.Sprintf("%s %s %s", evaluator.InspectQuoted(actual), op, evaluator.InspectQuoted(expected))
		return record(call, eq(actual, expected) == want, call.Args.Get(2), defaultMsg)
	})
}

// record stores the outcome as evidence and fails the run when ok is false.
func record(call *evaluator.NativeCall, ok bool, message evaluator.Value, defaultMsg string) (evaluator.Value, error) {
	msg := ""
	if _, missing := message.(evaluator.Undefined); !missing {
		msg = evaluator.ToString(message)
	}
	if !ok && msg == "" {
		msg = defaultMsg
	}

	call.Host.RecordEvidence(evaluator.Evidence{
		Kind: "assert",
		OK:   ok,
		Msg:  msg,
		Span: call.Span,
	})

	if !ok {
		return nil, &evaluator.RuntimeError{
			Code:    diagnostics.EAssert,
			Message: fmt.Sprintf("assertion failed: %s", msg),
			Span:    call.Span,
		}
	}
	return evaluator.NewUndefined(), nil
}
