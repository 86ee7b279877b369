// Package testutil provides shared test helpers for jsfn Go tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/jsfn/pkg/capabilities"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// ScenarioFile is the file name marking a scenario directory.
const ScenarioFile = "scenario.yaml"

// Scenario represents a test scenario loaded from a scenario.yaml file.
type Scenario struct {
	Cmd    []string                 `yaml:"cmd"`
	Policy *capabilities.PolicyFile `yaml:"policy,omitempty"`
	Meta   *ScenarioMeta            `yaml:"meta,omitempty"`
	Expect ExpectedResult           `yaml:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
// Subset expectations are matched against the JSON form of the actual
// values: every key given must be present with an equal value.
type ExpectedResult struct {
	ExitCode          int              `yaml:"exitCode"`
	StdoutText        *string          `yaml:"stdoutText,omitempty"`
	StdoutContains    string           `yaml:"stdoutContains,omitempty"`
	StderrContains    string           `yaml:"stderrContains,omitempty"`
	ResultJSON        string           `yaml:"resultJson,omitempty"`
	DiagnosticsSubset []map[string]any `yaml:"diagnosticsSubset,omitempty"`
	EvidenceSubset    []map[string]any `yaml:"evidenceSubset,omitempty"`
	EvidenceCount     *int             `yaml:"evidenceCount,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
// Unknown fields are rejected so typos in expectations do not pass silently.
func LoadScenario(dir string) (*Scenario, error) {
	file, err := os.Open(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var s Scenario
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", dir, err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("scenario %s: cmd must not be empty", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), ScenarioFile)
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", err
	}
	return string(source), filename, nil
}

// HasFlag reports whether the scenario cmd carries flag.
func (s *Scenario) HasFlag(flag string) bool {
	for _, arg := range s.Cmd[1:] {
		if arg == flag {
			return true
		}
	}
	return false
}

// IsSubset checks if expected is a subset of actual. Actual values come from
// encoding/json, expected ones from YAML, so numbers compare by value.
func IsSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !IsSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !IsSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case int:
		af, ok := actual.(float64)
		return ok && float64(e) == af

	case float64:
		af, ok := actual.(float64)
		return ok && e == af

	case string:
		as, ok := actual.(string)
		return ok && e == as

	case bool:
		ab, ok := actual.(bool)
		return ok && e == ab

	case nil:
		return actual == nil

	default:
		return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
	}
}
