package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thomasrohde/jsfn/pkg/capabilities"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/runtime"
)

func TestRunFunctionScript(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	res, err := rt.Run(context.Background(), `
var assert = require("assert");
function f4(a) { return arguments.length; }
console.log(f4(1, 2, 3, 4));
assert(f4(1, 2, 3, 4) === 4);
f4()`, "main.js")
	require.NoError(t, err)
	require.Equal(t, evaluator.NewNumber(0), res.Value)
	require.Len(t, res.Evidence, 1)
	require.Equal(t, "4\n", out.String())
}

func TestRunReportsParseErrors(t *testing.T) {
	_, err := runtime.New().Run(context.Background(), `function (`, "bad.js")
	var diagErr *runtime.DiagnosticError
	require.True(t, errors.As(err, &diagErr))
	require.Equal(t, diagnostics.EParse, diagErr.Diagnostics[0].Code)
}

func TestRunValidatesBeforeExecuting(t *testing.T) {
	var out bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&out))
	_, err := rt.Run(context.Background(), `console.log("side effect"); missing();`, "main.js")

	var diagErr *runtime.DiagnosticError
	require.True(t, errors.As(err, &diagErr))
	require.Equal(t, diagnostics.EUnbound, diagErr.Diagnostics[0].Code)
	require.Contains(t, err.Error(), "E_UNBOUND: unbound variable 'missing'")
	require.Empty(t, out.String())
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	require.Empty(t, rt.Check(`var a = require("assert"); a(true);`, "ok.js"))

	diags := rt.Check(`return require("fs")`, "bad.js")
	require.Len(t, diags, 2)
	require.Equal(t, diagnostics.EReturnOutsideFn, diags[0].Code)
	require.Equal(t, diagnostics.EUnknownModule, diags[1].Code)
}

func TestFormat(t *testing.T) {
	out, err := runtime.New().Format(`function f(a){return a}`, "f.js")
	require.NoError(t, err)
	require.Equal(t, "function f(a) {\n  return a;\n}\n", out)

	_, err = runtime.New().Format(`var = 1`, "f.js")
	require.Error(t, err)
}

func TestPolicyDeniesModule(t *testing.T) {
	policy := &capabilities.Policy{Denied: map[string]bool{"assert": true}}
	_, err := runtime.New(runtime.WithPolicy(policy)).Run(context.Background(), `require("assert")`, "main.js")

	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	require.Equal(t, diagnostics.EModuleDenied, rtErr.Code)
	require.Equal(t, 3, diagnostics.ExitCode(rtErr.Code))

	_, err = runtime.New(runtime.WithPolicy(policy), runtime.WithUnsafeAllowAll()).
		Run(context.Background(), `require("assert")`, "main.js")
	require.NoError(t, err)
}

func TestPolicyLimitsApply(t *testing.T) {
	depth := int64(10)
	policy := &capabilities.Policy{Limits: capabilities.Limits{MaxCallDepth: &depth}}
	src := `function down(n) { return n === 0 ? 0 : down(n - 1); } down(20)`

	_, err := runtime.New(runtime.WithPolicy(policy)).Run(context.Background(), src, "main.js")
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	require.Equal(t, diagnostics.ERange, rtErr.Code)

	// An explicit budget overrides the policy limit.
	wider := int64(100)
	res, err := runtime.New(runtime.WithPolicy(policy), runtime.WithBudget(evaluator.Budget{MaxCallDepth: &wider})).
		Run(context.Background(), src, "main.js")
	require.NoError(t, err)
	require.Equal(t, evaluator.NewNumber(0), res.Value)
}

func TestRunKeepsEvidenceOnFailure(t *testing.T) {
	res, err := runtime.New().Run(context.Background(), `assert(true); assert(false, "second");`, "main.js")
	require.Error(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Evidence, 2)
	require.True(t, res.Evidence[0].OK)
	require.False(t, res.Evidence[1].OK)
}

func TestTraceAndRunID(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithRunID("abc"),
		runtime.WithTrace(func(e evaluator.TraceEvent) { events = append(events, e) }),
	)
	_, err := rt.Run(context.Background(), `(function () {})()`, "main.js")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for _, e := range events {
		require.Equal(t, "abc", e.RunID)
	}
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := runtime.New(runtime.WithLogger(zap.New(core))).
		Run(context.Background(), `function f() {} f(1)`, "main.js")
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("run").Len())
	require.Equal(t, 1, logs.FilterMessage("invoke").Len())
}

func TestSession(t *testing.T) {
	s := runtime.New().NewSession()
	_, err := s.Eval(context.Background(), `function twice(x) { return 2 * x; }`)
	require.NoError(t, err)

	res, err := s.Eval(context.Background(), `twice(21)`)
	require.NoError(t, err)
	require.Equal(t, evaluator.NewNumber(42), res.Value)

	_, err = s.Eval(context.Background(), `nope()`)
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr))
	require.Equal(t, diagnostics.EReference, rtErr.Code)

	// The session survives errors.
	res, err = s.Eval(context.Background(), `twice(1)`)
	require.NoError(t, err)
	require.Equal(t, evaluator.NewNumber(2), res.Value)
}

func TestExitCodeAndDiagnostics(t *testing.T) {
	rt := runtime.New()
	tests := []struct {
		src  string
		code string
		exit int
	}{
		{`var = 1`, diagnostics.EParse, 2},
		{`undefinedName`, diagnostics.EUnbound, 2},
		{`assert(false)`, diagnostics.EAssert, 5},
		{`throw "x"`, diagnostics.EThrow, 4},
		{`var x = 1; x()`, diagnostics.EType, 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := rt.Run(context.Background(), tt.src, "main.js")
			require.Equal(t, tt.exit, runtime.ExitCode(err))
			diags := runtime.ErrorDiagnostics(err)
			require.NotEmpty(t, diags)
			require.Equal(t, tt.code, diags[0].Code)
		})
	}

	require.Equal(t, 0, runtime.ExitCode(nil))
	require.Equal(t, 1, runtime.ExitCode(errors.New("disk on fire")))
	require.Equal(t, diagnostics.EIO, runtime.ErrorDiagnostics(errors.New("disk on fire"))[0].Code)
}
