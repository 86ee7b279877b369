package validator_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/parser"
	"github.com/thomasrohde/jsfn/pkg/validator"
)

var hostOpts = validator.Options{
	Globals: []string{"assert", "console", "String"},
	Modules: []string{"assert"},
}

// mustParseAndValidate parses source and validates it, returning diagnostics
// from validation only. It fatals on parse errors so test cases focus on
// validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.js")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog, hostOpts)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertDiags asserts the diagnostics have exactly the given codes, in order.
func assertDiags(t *testing.T, diags []diagnostics.Diagnostic, codes ...string) {
	t.Helper()
	var got []string
	for _, d := range diags {
		got = append(got, d.Code)
	}
	if strings.Join(got, ",") != strings.Join(codes, ",") {
		t.Errorf("expected codes %v, got %v", codes, got)
	}
}

// ===== Valid programs =====

func TestValid_FunctionScript(t *testing.T) {
	diags := mustParseAndValidate(t, `var assert = require("assert");
var f = function () { return true; }
assert(f());
function f2() { return true; }
assert(f2());
(function () { assert(true); })();
if (!(function () { return true; })()) { assert(false); }
function f3(a, b) { assert(a === 1); assert(b === 2); }
f3(1, 2);
function f4(a) { return arguments.length; }
assert(f4(1, 2, 3, 4) === 4);
function f5() { return arguments[4]; }
assert(f5(1, 2, 3, 4, 21) === 21);`)
	assertNoDiags(t, diags)
}

func TestValid_HoistedFunctionUsedBeforeDeclaration(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `later(); function later() { return inner(); function inner() {} }`))
}

func TestValid_VarUsedBeforeDeclaration(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `function f() { x; if (true) { var x = 1; } return x; }`))
}

func TestValid_NamedExpressionSeesItself(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `var f = function fact(n) { return n ? n * fact(n - 1) : 1; };`))
}

func TestValid_ArgumentsInsideFunction(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `(function () { return arguments.length; })()`))
}

func TestValid_ClosureSeesOuterParams(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `function outer(a) { return function () { return a; }; }`))
}

func TestValid_CatchBinding(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `try { throw 1; } catch (e) { console.log(e); }`))
}

func TestValid_ImplicitGlobal(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `function init() { counter = 0; } init(); counter;`))
}

func TestValid_TypeofUndeclared(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `typeof nothing === "undefined"`))
}

func TestValid_BuiltinGlobals(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `[undefined, NaN, Infinity, String(1)]`))
}

func TestValid_ShadowedRequireNotChecked(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `function f(require) { return require("anything"); }`))
}

func TestValid_DynamicRequireNotChecked(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `var name = "fs"; require(name);`))
}

// ===== E_UNBOUND =====

func TestUnbound_Identifier(t *testing.T) {
	diags := mustParseAndValidate(t, `missing + 1`)
	assertDiags(t, diags, diagnostics.EUnbound)
	if diags[0].Message != "unbound variable 'missing'" {
		t.Errorf("message = %q", diags[0].Message)
	}
	if diags[0].Span == nil || diags[0].Span.StartCol != 1 {
		t.Errorf("span = %+v", diags[0].Span)
	}
}

func TestUnbound_ArgumentsAtTopLevel(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `arguments.length`), diagnostics.EUnbound)
}

func TestUnbound_ParamNotVisibleOutside(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `function f(a) {} a;`), diagnostics.EUnbound)
}

func TestUnbound_NamedExpressionNotVisibleOutside(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `var f = function g() {}; g();`), diagnostics.EUnbound)
}

func TestUnbound_CatchBindingNotVisibleAfter(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `try {} catch (e) {} e;`), diagnostics.EUnbound)
}

func TestUnbound_InnerVarNotVisibleOutside(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `function f() { var local = 1; } local;`), diagnostics.EUnbound)
}

func TestUnbound_AllReported(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `a; function f() { return b; } c;`),
		diagnostics.EUnbound, diagnostics.EUnbound, diagnostics.EUnbound)
}

// ===== E_RETURN_OUTSIDE_FN =====

func TestReturnOutsideFunction(t *testing.T) {
	diags := mustParseAndValidate(t, `return 1`)
	assertDiags(t, diags, diagnostics.EReturnOutsideFn)
}

func TestReturnInsideBlockAtTopLevel(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `if (true) { return; }`), diagnostics.EReturnOutsideFn)
}

func TestReturnInsideFunctionBlock(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, `function f(x) { if (x) { return 1; } try { return 2; } catch (e) { return 3; } }`))
}

// ===== E_UNKNOWN_MODULE =====

func TestUnknownModule(t *testing.T) {
	diags := mustParseAndValidate(t, `var fs = require("fs");`)
	assertDiags(t, diags, diagnostics.EUnknownModule)
	if diags[0].Message != "unknown module 'fs'" {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestUnknownModuleInsideFunction(t *testing.T) {
	assertDiags(t, mustParseAndValidate(t, `function load() { return require("net"); }`), diagnostics.EUnknownModule)
}

func TestModulesUncheckedWhenNil(t *testing.T) {
	prog, errs := parser.Parse(`require("anything")`, "test.js")
	if len(errs) > 0 {
		t.Fatal(errs[0].Message)
	}
	assertNoDiags(t, validator.Validate(prog, validator.Options{}))
}
