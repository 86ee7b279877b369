// Command jsfn is the jsfn CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/jsfn/internal/logging"
	"github.com/thomasrohde/jsfn/pkg/capabilities"
	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
	"github.com/thomasrohde/jsfn/pkg/formatter"
	"github.com/thomasrohde/jsfn/pkg/help"
	"github.com/thomasrohde/jsfn/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: jsfn <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, trace, repl, help, policy")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "policy":
		os.Exit(cmdPolicy(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// runFlags are the options accepted by `jsfn run`.
type runFlags struct {
	file           string
	pretty         bool
	unsafeAllowAll bool
	printResult    bool
	debug          bool
	evidencePath   string
	tracePath      string
}

func parseRunFlags(args []string) (runFlags, error) {
	var f runFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			f.pretty = true
		case "--unsafe-allow-all":
			f.unsafeAllowAll = true
		case "--result":
			f.printResult = true
		case "--debug":
			f.debug = true
		case "--evidence":
			if i+1 >= len(args) {
				return f, fmt.Errorf("--evidence requires a path")
			}
			i++
			f.evidencePath = args[i]
		case "--trace":
			if i+1 >= len(args) {
				return f, fmt.Errorf("--trace requires a path")
			}
			i++
			f.tracePath = args[i]
		default:
			if strings.HasPrefix(args[i], "-") && args[i] != "-" {
				return f, fmt.Errorf("unknown flag: %s", args[i])
			}
			f.file = args[i]
		}
	}
	if f.file == "" {
		return f, fmt.Errorf("missing program file")
	}
	return f, nil
}

func cmdRun(args []string) int {
	flags, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		fmt.Fprintln(os.Stderr, "usage: jsfn run <file> [--trace <path>] [--evidence <path>] [--result] [--pretty] [--unsafe-allow-all] [--debug]")
		return 1
	}

	source, filename, exitCode := readSource(flags.file, flags.pretty)
	if exitCode != 0 {
		return exitCode
	}

	log := logging.New(flags.debug)
	defer func() { _ = log.Sync() }()

	opts := []runtime.Option{runtime.WithLogger(log)}
	if flags.unsafeAllowAll {
		opts = append(opts, runtime.WithUnsafeAllowAll())
	} else {
		policy, code := loadPolicy(flags.pretty)
		if code != 0 {
			return code
		}
		if policy.Source != "" {
			log.Debug("policy loaded", zap.String("source", policy.Source))
		}
		opts = append(opts, runtime.WithPolicy(policy))
	}

	if flags.tracePath != "" {
		traceFile, err := os.Create(flags.tracePath)
		if err != nil {
			printDiag(diagnostics.EIO, fmt.Sprintf("cannot create trace file: %s", flags.tracePath), flags.pretty)
			return 1
		}
		defer traceFile.Close()
		opts = append(opts, runtime.WithTrace(traceWriter(traceFile, log)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, execErr := runtime.New(opts...).Run(ctx, source, filename)

	if result != nil && flags.evidencePath != "" {
		if err := writeEvidence(flags.evidencePath, result.Evidence); err != nil {
			log.Warn("cannot write evidence", zap.String("path", flags.evidencePath), zap.Error(err))
		}
	}

	if execErr != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.ErrorDiagnostics(execErr), flags.pretty))
		return runtime.ExitCode(execErr)
	}

	if flags.printResult && result != nil && result.Value != nil {
		jsonBytes, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error serializing result: %s\n", err)
			return 4
		}
		fmt.Println(string(jsonBytes))
	}
	return 0
}

// traceWriter returns a trace callback writing one JSON event per line.
func traceWriter(w io.Writer, log *zap.Logger) func(evaluator.TraceEvent) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(event evaluator.TraceEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(event); err != nil {
			log.Warn("cannot write trace event", zap.String("event", string(event.Event)), zap.Error(err))
		}
	}
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: jsfn check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: jsfn fmt <file> [--write]")
		return 1
	}

	source, filename, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.ErrorDiagnostics(err), false))
		return 2
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: jsfn trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), false)
		return 1
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		printDiag(diagnostics.EIO, fmt.Sprintf("cannot read trace: %s", err), false)
		return 1
	}

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
		return 0
	}
	b, _ := json.Marshal(summary)
	fmt.Println(string(b))
	return 0
}

func cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "" && topic != "stdlib" {
			fmt.Fprintln(os.Stderr, "error: --index is only supported for the stdlib topic")
			return 1
		}
		fmt.Print(help.StdlibIndex())
		return 0
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

func cmdPolicy(args []string) int {
	asJSON := false
	for _, arg := range args {
		if arg == "--json" {
			asJSON = true
		}
	}

	policy, code := loadPolicy(false)
	if code != 0 {
		return code
	}

	out, err := renderPolicy(policy, asJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error rendering policy: %s\n", err)
		return 1
	}
	fmt.Print(out)
	return 0
}

// renderPolicy prints the effective policy in file form, headed by its source.
func renderPolicy(policy *capabilities.Policy, asJSON bool) (string, error) {
	pf := policy.File()
	if asJSON {
		b, err := json.MarshalIndent(struct {
			Source string `json:"source,omitempty"`
			*capabilities.PolicyFile
		}{policy.Source, pf}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	}

	source := policy.Source
	if source == "" {
		source = "default (allow all)"
	}
	b, err := yaml.Marshal(pf)
	if err != nil {
		return "", err
	}
	body := string(b)
	if strings.TrimSpace(body) == "{}" {
		body = ""
	}
	return "# source: " + source + "\n" + body, nil
}

func loadPolicy(pretty bool) (*capabilities.Policy, int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	policy, err := capabilities.LoadPolicy(cwd)
	if err != nil {
		printDiag(diagnostics.EPolicy, err.Error(), pretty)
		return nil, 1
	}
	return policy, 0
}

// TraceSummary aggregates a trace file written by `jsfn run --trace`.
type TraceSummary struct {
	RunID            string         `json:"runId"`
	TotalEvents      int            `json:"totalEvents"`
	Calls            int            `json:"calls"`
	CallsByName      map[string]int `json:"callsByName"`
	FailedCalls      int            `json:"failedCalls"`
	MaxDepth         int            `json:"maxDepth"`
	EvidenceCount    int            `json:"evidenceCount"`
	EvidenceFailures int            `json:"evidenceFailures"`
	BudgetExceeded   int            `json:"budgetExceeded"`
	StartTime        string         `json:"startTime,omitempty"`
	EndTime          string         `json:"endTime,omitempty"`
	DurationMs       float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if depth, ok := event.Data["maxDepth"].(float64); ok && int(depth) > summary.MaxDepth {
				summary.MaxDepth = int(depth)
			}
		case evaluator.TraceFnCallStart:
			summary.Calls++
			name, _ := event.Data["fn"].(string)
			if name == "" {
				name = "(anonymous)"
			}
			summary.CallsByName[name]++
		case evaluator.TraceFnCallEnd:
			if ok, found := event.Data["ok"].(bool); found && !ok {
				summary.FailedCalls++
			}
		case evaluator.TraceEvidence:
			summary.EvidenceCount++
			if ok, found := event.Data["ok"].(bool); found && !ok {
				summary.EvidenceFailures++
			}
		case evaluator.TraceBudgetExceeded:
			summary.BudgetExceeded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d (%d failed, max depth %d)\n", s.Calls, s.FailedCalls, s.MaxDepth)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	fmt.Fprintf(w, "Evidence: %d (%d failures)\n", s.EvidenceCount, s.EvidenceFailures)
	if s.BudgetExceeded > 0 {
		fmt.Fprintf(w, "Budget exceeded: %d\n", s.BudgetExceeded)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		printDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), pretty)
		return "", "", 1
	}
	return string(source), file, 0
}

func printDiag(code, message string, pretty bool) {
	diag := diagnostics.MakeDiag(code, message, nil, "")
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
}

func writeEvidence(path string, evidence []evaluator.Evidence) error {
	data, err := evaluator.EvidenceToJSON(evidence)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
