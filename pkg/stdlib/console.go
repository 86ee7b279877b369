package stdlib

import (
	"context"
	"fmt"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

func newConsole() *evaluator.Object {
	return namespace(
		native("log", 0, consoleLog),
		native("error", 0, consoleLog),
	)
}

// console.log(...values) writes the values separated by spaces.
func consoleLog(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	parts := make([]string, call.Args.Len())
	for i, v := range call.Args.Values() {
		parts[i] = evaluator.Inspect(v)
	}
	if _, err := fmt.Fprintln(call.Host.Stdout(), strings.Join(parts, " ")); err != nil {
		return nil, err
	}
	return evaluator.NewUndefined(), nil
}
