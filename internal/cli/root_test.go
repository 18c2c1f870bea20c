package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no wq environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, name := range []string{"SCYLLA_URI", "WQ_TARGET_TYPE", "WQ_TARGET_URI", "WQ_PREVIEW_FILE"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Setenv("WQ_STATE_FILE", filepath.Join(dir, "state", "state.db"))
	t.Setenv("WQ_HISTORY_FILE", filepath.Join(dir, "state", "history"))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "wq", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"query", "repl", "info", "runs", "version", "completion"})

	for _, flag := range []string{
		"config", "env-file", "verbose", "no-color", "type", "uri", "keyspace",
		"database", "username", "password", "consistency", "connect-timeout",
		"metadata-refresh", "preview-file", "history-file", "state-file",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_Version(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wq v"+Version)
}

func TestRoot_InvalidType(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--type", "oracle", "info", "--offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestRoot_InfoOffline(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "--no-color", "--type", "sqlite", "--uri", ":memory:", "info", "--offline")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Target")
	assert.Contains(t, stdout, "Connect Timeout")
	assert.Contains(t, stdout, "3s")
	assert.Contains(t, stdout, ":memory:")
	assert.NotContains(t, stdout, "Server")
}

func TestRoot_Info(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, "--no-color", "--type", "sqlite", "--uri", ":memory:", "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Server")
	assert.Contains(t, stdout, "SQLite version")
}

func TestRoot_Query(t *testing.T) {
	dir := isolate(t)
	preview := filepath.Join(dir, "preview")

	stdout, stderr, err := execute(t, "--no-color", "--type", "sqlite", "--uri", ":memory:",
		"query", "-q", "CREATE TABLE t (a TEXT); INSERT INTO t VALUES ('x'); SELECT a FROM t; SELECT nope FROM t;", preview)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Executing 4 statement(s)...")
	assert.Contains(t, stdout, "✓ Statement 3 executed successfully")
	assert.Contains(t, stdout, "Results written to: "+filepath.Join(preview, ".pw.cql.md"))
	assert.Contains(t, stderr, "✗ Error executing statement 4:")

	content, err := os.ReadFile(filepath.Join(preview, ".pw.cql.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "| x |")
	assert.Contains(t, string(content), "**Error:**")
}

func TestRoot_QueryCustomPreviewFile(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "--type", "sqlite", "--uri", ":memory:", "--preview-file", "out.md", "query", "-q", "SELECT 1;", dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "out.md"))
	assert.NoFileExists(t, filepath.Join(dir, ".pw.cql.md"))
}

func TestRoot_WatchRequiresInput(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--type", "sqlite", "query", "-q", "SELECT 1;", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires --input")
}

func TestRoot_Completion(t *testing.T) {
	stdout, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wq")
}

func TestRoot_RunsAfterQuery(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "--no-color", "--type", "sqlite", "--uri", ":memory:", "runs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded yet")

	_, _, err = execute(t, "--type", "sqlite", "--uri", ":memory:", "query", "-q", "SELECT 1; SELECT nope;", dir)
	require.NoError(t, err)

	stdout, _, err = execute(t, "--no-color", "--type", "sqlite", "--uri", ":memory:", "runs")
	require.NoError(t, err)
	assert.Contains(t, stdout, "partial")
	assert.Contains(t, stdout, "1/2")
	assert.Contains(t, stdout, "sqlite :memory:")
}

func TestRoot_RunsDisabled(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--type", "sqlite", "--state-file", "", "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run history is disabled")
}
