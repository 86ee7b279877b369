package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/help"
	"github.com/thomasrohde/jsfn/pkg/parser"
	"github.com/thomasrohde/jsfn/pkg/runtime"
)

const (
	historyFile = ".jsfn_history"
	promptMain  = "> "
	promptCont  = "... "
)

func cmdRepl(_ []string) int {
	fmt.Printf("jsfn %s. Type .exit to quit, .help for commands.\n", help.Version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	policy, code := loadPolicy(true)
	if code != 0 {
		return code
	}
	session := runtime.New(runtime.WithPolicy(policy)).NewSession()

	for {
		src, ok := readInput(ln)
		if !ok {
			fmt.Println()
			return 0
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ".") {
			if replCommand(os.Stdout, trimmed) {
				return 0
			}
			continue
		}

		fmt.Println(evalInput(context.Background(), session, src))
	}
}

// readInput reads one complete input, prompting for continuation lines while
// the parser reports that the source ended early.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !needsMoreInput(src) {
			return src, true
		}
	}
}

func needsMoreInput(src string) bool {
	_, diags := parser.Parse(src, "repl")
	return parser.IsIncomplete(diags)
}

// replCommand runs a dot command and reports whether the REPL should exit.
func replCommand(w io.Writer, cmd string) bool {
	switch cmd {
	case ".exit", ".quit":
		return true
	case ".help":
		fmt.Fprintln(w, ".exit    leave the REPL")
		fmt.Fprintln(w, ".help    show this list")
		fmt.Fprintln(w, "Globals and functions persist between inputs.")
	default:
		fmt.Fprintf(w, "unknown command %s. Type .help for commands.\n", cmd)
	}
	return false
}

// evalInput runs src in the session and renders the result or the error.
func evalInput(ctx context.Context, session *runtime.Session, src string) string {
	result, err := session.Eval(ctx, src)
	if err != nil {
		return diagnostics.FormatDiagnostics(runtime.ErrorDiagnostics(err), true)
	}
	return evaluator.InspectQuoted(result.Value)
}
