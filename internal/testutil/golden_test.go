package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScenarioFile), []byte(`
cmd: [run, program.js, --pretty]
policy:
  deny: [assert]
  limits:
    maxCallDepth: 5
expect:
  exitCode: 3
  stdoutText: ""
  diagnosticsSubset:
    - code: E_MODULE_DENIED
`), 0o644))

	s, err := LoadScenario(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"run", "program.js", "--pretty"}, s.Cmd)
	require.True(t, s.HasFlag("--pretty"))
	require.False(t, s.HasFlag("run"))
	require.Equal(t, []string{"assert"}, s.Policy.Deny)
	require.EqualValues(t, 5, *s.Policy.Limits.MaxCallDepth)
	require.Equal(t, 3, s.Expect.ExitCode)
	require.NotNil(t, s.Expect.StdoutText)
	require.Empty(t, *s.Expect.StdoutText)
	require.Equal(t, "E_MODULE_DENIED", s.Expect.DiagnosticsSubset[0]["code"])
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScenarioFile), []byte("cmd: [run]\nexpect:\n  exitcode: 1\n"), 0o644))
	_, err := LoadScenario(dir)
	require.Error(t, err)
}

func TestListScenarios(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b", "a"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, ScenarioFile), []byte("cmd: [check]\n"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-scenario"), 0o755))

	dirs, err := ListScenarios(root)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, dirs)
}

func TestIsSubset(t *testing.T) {
	actual := map[string]any{"code": "E_TYPE", "span": map[string]any{"startLine": float64(3)}, "ok": false}
	require.True(t, IsSubset(map[string]any{"code": "E_TYPE"}, actual))
	require.True(t, IsSubset(map[string]any{"span": map[string]any{"startLine": 3}}, actual))
	require.True(t, IsSubset(map[string]any{"ok": false}, actual))
	require.False(t, IsSubset(map[string]any{"code": "E_RANGE"}, actual))
	require.False(t, IsSubset(map[string]any{"missing": nil}, actual))
	require.True(t, IsSubset([]any{1}, []any{float64(1), float64(2)}))
	require.False(t, IsSubset([]any{1, 2, 3}, []any{float64(1)}))
}
