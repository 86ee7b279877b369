// Package help holds the jsfn CLI reference text.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/stdlib"
)

// Version is the language reference version.
const Version = "v0.3"

// QUICKREF is printed by `jsfn help` with no topic.
const QUICKREF = `jsfn ` + Version + ` - a JavaScript-subset interpreter

USAGE
  jsfn run <file.js> [--trace out.jsonl] [--evidence out.json] [--result]
           [--pretty] [--unsafe-allow-all] [--debug]
  jsfn check <file.js> [--pretty]
  jsfn fmt <file.js> [--write]
  jsfn trace <trace.jsonl> [--json|--text]
  jsfn repl
  jsfn policy [--json]
  jsfn help [topic]

LANGUAGE
  var x = 1, y;                 function f(a, b) { return a + b; }
  var g = function name() {};   (function () { ... })();
  if (c) { ... } else { ... }   try { throw v; } catch (e) { ... }
  arguments.length, arguments[i] inside every function

EXIT CODES
  0 ok   1 usage/io   2 diagnostics   3 module denied   4 runtime error   5 assertion failed

TOPICS  (jsfn help <topic>, prefixes work)
  syntax  functions  arguments  hoisting  stdlib  policy  budget  diagnostics  examples
`

// TopicList is the display order of help topics.
var TopicList = []string{
	"syntax", "functions", "arguments", "hoisting", "stdlib", "policy", "budget", "diagnostics", "examples",
}

// Topics maps each topic name to its text.
var Topics = map[string]string{
	"syntax": `SYNTAX
Statements: var (several declarators), function declarations, expression
statements, return, if/else, blocks, throw, try/catch, the empty statement.
Semicolons are optional at line ends, before } and at end of input.

Expressions, loosest first:
  =            assignment to names, properties and elements
  ? :          conditional
  || &&        logical, short-circuit, yield an operand
  == != === !==
  < > <= >=
  + -          + concatenates when either side is a string
  * / %
  ! - + typeof unary
  f(x) o.p o[k] calls and property access

Literals: numbers (incl. 0x hex and exponents), "strings" or 'strings',
true/false, null, [arrays], { objects } with ordered keys, function
expressions. undefined, NaN and Infinity are globals.
Comments: // line and /* block */.
`,

	"functions": `FUNCTIONS
  function add(a, b) { return a + b; }     declaration, bound in its scope
  var sub = function (a, b) { ... };       anonymous expression
  var fact = function f(n) { ... f(n-1) }  named expression, f visible inside only
  (function () { ... })();                 immediately invoked

A call binds parameters positionally. Missing arguments are undefined,
surplus arguments are ignored by the parameters but remain in arguments.
Arity never causes an error. A call without return yields undefined.

Functions close over the scope they were created in; the scope lives as
long as any function referencing it. f.length is the parameter count and
f.name the declared name.

Calling something that is not a function is E_TYPE "x is not a function".
`,

	"arguments": `ARGUMENTS
Every call gets a fresh, read-only arguments view of exactly the values the
caller supplied:

  function f4(a) { return arguments.length; }
  f4(1, 2, 3, 4)      // 4, regardless of the single parameter

  function f5() { return arguments[4]; }
  f5(1, 2, 3, 4, 21)  // 21, with no parameters at all

Indices outside 0..length-1 give undefined. Assigning to a parameter does not
change arguments, and writing to arguments is E_TYPE. A parameter named
arguments shadows the view.
`,

	"hoisting": `HOISTING
Before a program or function body runs:
  - every var name in it (not in nested functions) is bound to undefined
  - every function declaration directly in it is created and bound

So a function may be called above its declaration, and reading a var before
its assignment gives undefined instead of an error. Declarations nested in
blocks are bound when the block runs.
`,

	"stdlib": `STDLIB
Globals and modules available to every program. See the index below.

  assert(value, message)       fails the run with E_ASSERT when value is falsy
  assert.equal(a, b, msg)      == comparison; also notEqual, strictEqual (===),
                               notStrictEqual, ok, fail
  require("assert")            the same assert function, as a module
  console.log(...values)       writes values separated by spaces

Every assert call is recorded as evidence and reported by jsfn run.
`,

	"policy": `POLICY
require is governed by a YAML policy, looked up in order:
  ./.jsfnpolicy.yaml   project
  ~/.jsfn/policy.yaml  user
  (none)               allow every registered module

  allow: [assert]      only these modules (empty = all)
  deny: [fs]           never these modules, overrides allow
  deny: ["*"]          no modules at all
  limits:
    timeMs: 1000       wall clock budget for a run
    maxCallDepth: 500  deepest allowed call nesting

Unknown fields are rejected. A denied require is E_MODULE_DENIED (exit 3).
jsfn policy prints the effective policy; --unsafe-allow-all ignores it.
`,

	"budget": `BUDGET
  maxCallDepth   nested calls beyond this are E_RANGE
                 "Maximum call stack size exceeded" (default 10000);
                 catchable with try/catch
  timeMs         a run exceeding it stops with E_BUDGET; not catchable

Both come from the policy limits section.
`,

	"diagnostics": `DIAGNOSTICS
Static (exit 2), reported by jsfn check and before jsfn run executes:
  E_LEX                 bad character or unterminated string/comment
  E_PARSE               syntax error
  E_INVALID_ASSIGN_TARGET
  E_UNBOUND             name used but never declared (typeof is exempt)
  E_RETURN_OUTSIDE_FN   return at the top level
  E_UNKNOWN_MODULE      require of a module the host does not provide

Runtime:
  E_TYPE E_REFERENCE E_RANGE E_THROW E_SYNTAX   exit 4
  E_BUDGET E_UNKNOWN_MODULE                     exit 4
  E_MODULE_DENIED                               exit 3
  E_ASSERT                                      exit 5

catch (e) binds the thrown value, or { code, message } for runtime errors.
`,

	"examples": `EXAMPLES
  var assert = require("assert");

  function f3(a, b) {
    assert(a === 1);
    assert(b === 2);
  }
  f3(1, 2);

  function sum() {
    var args = arguments;
    function from(i) { return i < args.length ? args[i] + from(i + 1) : 0; }
    return from(0);
  }
  sum(1, 2, 3);           // 6

  var counter = (function () {
    var n = 0;
    return function () { n = n + 1; return n; };
  })();
  counter(); counter();   // 2
`,
}

// MatchTopic resolves an exact topic name or a unique prefix.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic '%s' (topics: %s)", query, strings.Join(TopicList, ", "))
	default:
		return "", "", fmt.Errorf("ambiguous help topic '%s' (matches: %s)", query, strings.Join(matches, ", "))
	}
}

// StdlibIndex lists every host function reachable from the default globals.
func StdlibIndex() string {
	reg := stdlib.Default()
	globals := reg.Globals()

	var names []string
	for _, global := range reg.GlobalNames() {
		switch v := globals[global].(type) {
		case *evaluator.NativeFunction:
			names = append(names, global)
			if v.Props != nil {
				names = append(names, functionKeys(global, v.Props)...)
			}
		case *evaluator.Object:
			names = append(names, functionKeys(global, v)...)
		}
	}

	var sb strings.Builder
	sb.WriteString("STDLIB INDEX\n")
	for _, name := range names {
		sb.WriteString("  " + name + "\n")
	}
	fmt.Fprintf(&sb, "Modules: %s\n", strings.Join(reg.ModuleNames(), ", "))
	for _, name := range reg.ModuleNames() {
		mod, _ := reg.Module(name)
		if exports := moduleExports(mod); len(exports) > 0 {
			fmt.Fprintf(&sb, "  require(%q) exports: %s\n", name, strings.Join(exports, ", "))
		}
	}
	fmt.Fprintf(&sb, "Total: %d functions\n", len(names))
	return sb.String()
}

// moduleExports lists the callable properties of a module value.
func moduleExports(mod evaluator.Value) []string {
	var props *evaluator.Object
	switch m := mod.(type) {
	case *evaluator.NativeFunction:
		props = m.Props
	case *evaluator.Object:
		props = m
	}
	if props == nil {
		return nil
	}
	var out []string
	for _, key := range functionKeys("", props) {
		out = append(out, strings.TrimPrefix(key, "."))
	}
	return out
}

func functionKeys(prefix string, obj *evaluator.Object) []string {
	var out []string
	for _, kv := range obj.Pairs {
		if _, ok := kv.Value.(evaluator.Callable); ok {
			out = append(out, prefix+"."+kv.Key)
		}
	}
	sort.Strings(out)
	return out
}
