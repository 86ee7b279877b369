package stdlib_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/parser"
	"github.com/thomasrohde/jsfn/pkg/stdlib"
)

func run(t *testing.T, src string) (*evaluator.ExecResult, string, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.js")
	require.Empty(t, diags)

	reg := stdlib.Default()
	var out bytes.Buffer
	res, err := evaluator.Execute(context.Background(), prog, evaluator.ExecOptions{
		Modules: reg.Modules(),
		Globals: reg.Globals(),
		Stdout:  &out,
	})
	return res, out.String(), err
}

func eval(t *testing.T, src string) string {
	t.Helper()
	res, _, err := run(t, src)
	require.NoError(t, err)
	return evaluator.ValueToJSONString(res.Value)
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var rtErr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rtErr), "expected RuntimeError, got %v", err)
	return rtErr.Code
}

func TestRegistry(t *testing.T) {
	reg := stdlib.Default()
	require.Equal(t, []string{"assert"}, reg.ModuleNames())
	require.Equal(t, []string{"JSON", "Math", "Number", "Object", "String", "assert", "console", "isNaN"}, reg.GlobalNames())

	mod, ok := reg.Module("assert")
	require.True(t, ok)
	require.Same(t, reg.Globals()["assert"], mod)

	// Copies do not leak back into the registry.
	globals := reg.Globals()
	delete(globals, "Math")
	require.Contains(t, reg.GlobalNames(), "Math")

	empty := stdlib.NewRegistry()
	empty.RegisterModule("m", evaluator.NewNull())
	require.Equal(t, []string{"m"}, empty.ModuleNames())
	require.Empty(t, empty.GlobalNames())
}

func TestAssertPasses(t *testing.T) {
	res, _, err := run(t, `
var assert = require("assert");
assert(1);
assert.ok("x");
assert.equal(1, "1");
assert.notEqual(1, 2);
assert.strictEqual(null, null);
assert.notStrictEqual(1, "1");`)
	require.NoError(t, err)
	require.Len(t, res.Evidence, 6)
	for _, e := range res.Evidence {
		require.True(t, e.OK)
		require.Empty(t, e.Msg)
	}
}

func TestAssertFailureMessages(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{`assert(0)`, "The expression evaluated to a falsy value"},
		{`assert(false, "custom")`, "custom"},
		{`assert.strictEqual(1, "1")`, "1 === '1'"},
		{`assert.equal([1], 2)`, "[ 1 ] == 2"},
		{`assert.notStrictEqual(null, null)`, "null !== null"},
		{`assert.fail()`, "Failed"},
		{`assert.fail("nope")`, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			res, _, err := run(t, tt.src)
			require.Equal(t, diagnostics.EAssert, codeOf(t, err))
			require.EqualError(t, err, "assertion failed: "+tt.msg)
			require.Len(t, res.Evidence, 1)
			require.False(t, res.Evidence[0].OK)
			require.Equal(t, tt.msg, res.Evidence[0].Msg)
		})
	}
}

func TestAssertInsideTryStillRecordsEvidence(t *testing.T) {
	res, _, err := run(t, `
var caught;
try { assert(false, "inner"); } catch (e) { caught = e.code; }
caught`)
	require.NoError(t, err)
	require.Equal(t, evaluator.NewString(diagnostics.EAssert), res.Value)
	require.Len(t, res.Evidence, 1)
	require.False(t, res.Evidence[0].OK)
}

func TestConsole(t *testing.T) {
	_, out, err := run(t, `
console.log("a", 1, true, null, undefined);
console.error({ k: "v" });
console.log();`)
	require.NoError(t, err)
	require.Equal(t, "a 1 true null undefined\n{ k: 'v' }\n\n", out)
}

func TestConsoleLogsArguments(t *testing.T) {
	_, out, err := run(t, `function f() { console.log(arguments); } f(1, "two")`)
	require.NoError(t, err)
	require.Equal(t, "[Arguments] [ 1, 'two' ]\n", out)
}

func TestConversions(t *testing.T) {
	require.Equal(t, `["","42","undefined","1,2"]`, eval(t, `[String(), String(42), String(undefined), String([1, 2])]`))
	require.Equal(t, `[0,3.5,0,1]`, eval(t, `[Number(), Number("3.5"), Number(null), Number(true)]`))
	require.Equal(t, `[true,false,true]`, eval(t, `[isNaN("abc"), isNaN("12"), isNaN(undefined)]`))
}

func TestMath(t *testing.T) {
	require.Equal(t, `[3,-1,2,1,2,3,-2,4]`, eval(t,
		`[Math.max(1, 3, 2), Math.min(1, -1), Math.abs(-2), Math.floor(1.7), Math.ceil(1.2), Math.round(2.5), Math.round(-2.5), Math.sqrt(16)]`))
	require.Equal(t, `true`, eval(t, `Math.PI > 3.14 && Math.PI < 3.15`))
	require.Equal(t, `[true,true,true]`, eval(t,
		`[Math.max() === -Infinity, Math.min() === Infinity, isNaN(Math.max(1, "x"))]`))
}

func TestObjectNamespace(t *testing.T) {
	require.Equal(t, `["b","a"]`, eval(t, `Object.keys({ b: 1, a: 2 })`))
	require.Equal(t, `[1,2]`, eval(t, `Object.values({ b: 1, a: 2 })`))
	require.Equal(t, `[["b",1]]`, eval(t, `Object.entries({ b: 1 })`))
	require.Equal(t, `["0","1"]`, eval(t, `Object.keys(["x", "y"])`))
	require.Equal(t, `["0","1","2"]`, eval(t, `function f() { return Object.keys(arguments); } f(7, 8, 9)`))

	_, _, err := run(t, `Object.keys(null)`)
	require.Equal(t, diagnostics.EType, codeOf(t, err))
}

func TestJSON(t *testing.T) {
	require.Equal(t, `{"z":1,"a":[true,null,"s"]}`, eval(t, `JSON.parse('{"z": 1, "a": [true, null, "s"]}')`))
	require.Equal(t, `"{\"a\":[1,\"x\"]}"`, eval(t, `JSON.stringify({ a: [1, "x"], skip: undefined })`))
	require.Equal(t, `true`, eval(t, `JSON.stringify(undefined) === undefined`))
	require.Equal(t, `true`, eval(t, `JSON.stringify(function () {}) === undefined`))

	require.Equal(t, `"{\"0\":1,\"1\":\"two\"}"`, eval(t, `(function () { return JSON.stringify(arguments); })(1, "two")`))

	for _, src := range []string{`JSON.parse("{")`, `JSON.parse("1 2")`, `JSON.parse("")`} {
		_, _, err := run(t, src)
		require.Equal(t, diagnostics.ESyntax, codeOf(t, err), src)
	}
}

func TestSelfContainingValues(t *testing.T) {
	require.Equal(t, `""`, eval(t, `var a = []; a[0] = a; a + ""`))
	require.Equal(t, `"1,"`, eval(t, `var a = [1]; a[1] = a; String(a)`))
	require.Equal(t, `false`, eval(t, `var a = [1]; a[1] = a; a == "1"`))

	_, _, err := run(t, `var o = {}; o.self = o; JSON.stringify(o)`)
	require.Equal(t, diagnostics.EType, codeOf(t, err))
	require.EqualError(t, err, "JSON.stringify: Converting circular structure to JSON")

	require.Equal(t, `"E_TYPE"`, eval(t, `
var o = { list: [] };
o.list[0] = o;
var code;
try { JSON.stringify(o); } catch (e) { code = e.code; }
code`))
}
