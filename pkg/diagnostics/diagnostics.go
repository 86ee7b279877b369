// Package diagnostics defines jsfn diagnostic types for parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex              = "E_LEX"
	EParse            = "E_PARSE"
	EUnbound          = "E_UNBOUND"
	EReturnOutsideFn  = "E_RETURN_OUTSIDE_FN"
	EUnknownModule    = "E_UNKNOWN_MODULE"
	EModuleDenied     = "E_MODULE_DENIED"
	EType             = "E_TYPE"
	EReference        = "E_REFERENCE"
	ERange            = "E_RANGE"
	EThrow            = "E_THROW"
	ESyntax           = "E_SYNTAX"
	EAssert           = "E_ASSERT"
	EBudget           = "E_BUDGET"
	EIO               = "E_IO"
	EPolicy           = "E_POLICY"
	EInvalidAssignTgt = "E_INVALID_ASSIGN_TARGET"
)

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// ExitCode maps a diagnostic or runtime error code to the CLI exit status.
func ExitCode(code string) int {
	switch code {
	case ELex, EParse, EUnbound, EReturnOutsideFn, EInvalidAssignTgt:
		return 2
	case EModuleDenied:
		return 3
	case EAssert:
		return 5
	default:
		return 4
	}
}
