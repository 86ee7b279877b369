package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thomasrohde/jsfn/pkg/capabilities"
	"github.com/thomasrohde/jsfn/pkg/runtime"
)

func TestParseRunFlags(t *testing.T) {
	f, err := parseRunFlags([]string{"prog.js", "--pretty", "--trace", "t.jsonl", "--evidence", "e.json", "--result", "--debug"})
	require.NoError(t, err)
	require.Equal(t, runFlags{
		file:         "prog.js",
		pretty:       true,
		printResult:  true,
		debug:        true,
		evidencePath: "e.json",
		tracePath:    "t.jsonl",
	}, f)

	f, err = parseRunFlags([]string{"-", "--unsafe-allow-all"})
	require.NoError(t, err)
	require.Equal(t, "-", f.file)
	require.True(t, f.unsafeAllowAll)
}

func TestParseRunFlagsErrors(t *testing.T) {
	tests := map[string][]string{
		"no file":         {"--pretty"},
		"trace no path":   {"prog.js", "--trace"},
		"evidence no arg": {"prog.js", "--evidence"},
		"unknown flag":    {"prog.js", "--fast"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseRunFlags(args)
			require.Error(t, err)
		})
	}
}

func TestTraceRoundTrip(t *testing.T) {
	var trace bytes.Buffer
	rt := runtime.New(
		runtime.WithStdout(&bytes.Buffer{}),
		runtime.WithRunID("r1"),
		runtime.WithTrace(traceWriter(&trace, zap.NewNop())),
	)
	_, err := rt.Run(context.Background(), `
var assert = require("assert");
function f4(a) { return arguments.length; }
function twice() { return f4(1, 2) + f4(); }
assert(twice() === 2);
(function () {})();
`, "prog.js")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	for _, line := range lines {
		require.True(t, json.Valid([]byte(line)), line)
	}

	summary, err := computeTraceSummary(&trace)
	require.NoError(t, err)
	require.Equal(t, "r1", summary.RunID)
	require.Equal(t, len(lines), summary.TotalEvents)
	require.Equal(t, map[string]int{"require": 1, "twice": 1, "f4": 2, "assert": 1, "(anonymous)": 1}, summary.CallsByName)
	require.Equal(t, 6, summary.Calls)
	require.Equal(t, 2, summary.MaxDepth)
	require.Equal(t, 1, summary.EvidenceCount)
	require.Zero(t, summary.EvidenceFailures)
	require.Zero(t, summary.FailedCalls)
	require.NotEmpty(t, summary.StartTime)
	require.NotEmpty(t, summary.EndTime)
}

func TestComputeTraceSummarySkipsInvalidLines(t *testing.T) {
	input := strings.Join([]string{
		`{"event":"run_start","runId":"x","ts":"2024-01-01T00:00:00Z"}`,
		`not json`,
		``,
		`{"event":"fn_call_start","runId":"x","ts":"2024-01-01T00:00:00Z","data":{"fn":"f","argc":3,"arity":1}}`,
		`{"event":"fn_call_end","runId":"x","ts":"2024-01-01T00:00:00Z","data":{"fn":"f","ok":false}}`,
		`{"event":"evidence","runId":"x","ts":"2024-01-01T00:00:00Z","data":{"ok":false}}`,
		`{"event":"budget_exceeded","runId":"x","ts":"2024-01-01T00:00:00Z"}`,
		`{"event":"run_end","runId":"x","ts":"2024-01-01T00:00:01.5Z","data":{"calls":1,"maxDepth":1}}`,
	}, "\n")

	summary, err := computeTraceSummary(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 6, summary.TotalEvents)
	require.Equal(t, 1, summary.Calls)
	require.Equal(t, 1, summary.FailedCalls)
	require.Equal(t, 1, summary.EvidenceFailures)
	require.Equal(t, 1, summary.BudgetExceeded)
	require.Equal(t, 1, summary.MaxDepth)
	require.EqualValues(t, 1500, summary.DurationMs)

	var out bytes.Buffer
	printTraceSummaryText(&out, summary)
	require.Equal(t, "Run: x\nEvents: 6\nCalls: 1 (1 failed, max depth 1)\n  f: 1\nEvidence: 1 (1 failures)\nBudget exceeded: 1\nDuration: 1500ms\n", out.String())
}

func TestRenderPolicy(t *testing.T) {
	out, err := renderPolicy(capabilities.AllowAll(), false)
	require.NoError(t, err)
	require.Equal(t, "# source: default (allow all)\n", out)

	depth := int64(64)
	policy := capabilities.NewPolicy(&capabilities.PolicyFile{
		Allow:  []string{"assert"},
		Limits: capabilities.Limits{MaxCallDepth: &depth},
	})
	policy.Source = "/p/.jsfnpolicy.yaml"

	out, err = renderPolicy(policy, false)
	require.NoError(t, err)
	require.Equal(t, "# source: /p/.jsfnpolicy.yaml\nallow:\n    - assert\nlimits:\n    maxCallDepth: 64\n", out)

	out, err = renderPolicy(policy, true)
	require.NoError(t, err)
	require.JSONEq(t, `{"source":"/p/.jsfnpolicy.yaml","allow":["assert"],"limits":{"maxCallDepth":64}}`, out)
}

func TestReplCommand(t *testing.T) {
	var out bytes.Buffer
	require.True(t, replCommand(&out, ".exit"))
	require.True(t, replCommand(&out, ".quit"))
	require.False(t, replCommand(&out, ".help"))
	require.Contains(t, out.String(), ".exit")

	out.Reset()
	require.False(t, replCommand(&out, ".nope"))
	require.Contains(t, out.String(), "unknown command .nope")
}

func TestNeedsMoreInput(t *testing.T) {
	require.True(t, needsMoreInput("function f(a) {"))
	require.True(t, needsMoreInput("(function () {\n  return 1;"))
	require.False(t, needsMoreInput("function f(a) { return a; }"))
	require.False(t, needsMoreInput("var 1"))
}

func TestEvalInputKeepsState(t *testing.T) {
	session := runtime.New(runtime.WithStdout(&bytes.Buffer{})).NewSession()
	ctx := context.Background()

	require.Equal(t, "undefined", evalInput(ctx, session, "function f() { return arguments.length; }"))
	require.Equal(t, "3", evalInput(ctx, session, "f(1, 2, 3)"))
	require.Equal(t, "'hi'", evalInput(ctx, session, `"hi"`))
	require.Contains(t, evalInput(ctx, session, "g()"), "error[E_REFERENCE]: g is not defined")
	require.Equal(t, "0", evalInput(ctx, session, "f()"))
}
