package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/spark/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"run", "record", "query", "header"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "log-level", "log-json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{})

	for _, name := range []string{"params", "output", "compression", "max-events", "run-id", "stats", "no-progress", "print-setup"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "n", cmd.Flags().Lookup("max-events").Shorthand)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "header", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestMissingConfigFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", filepath.Join(dir, "missing.yaml"), "record", filepath.Join(dir, "events"), "-n", "1")
	require.NoError(t, err)
}

func TestRunWithoutEventLog(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestRecordRunQuery(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "events")
	out := filepath.Join(dir, "out")
	paramsFile := filepath.Join(dir, "params.txt")

	stdout, err := execute(t, "record", events, "--events", "20", "--seed", "3", "--params-file", paramsFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "recorded 20 events")
	assert.FileExists(t, paramsFile)

	stdout, err = execute(t, "run", events, "--output", out, "--params", paramsFile, "--no-progress", "--stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "processed 20 events")
	assert.FileExists(t, filepath.Join(out, config.HeaderFileName))
	assert.FileExists(t, filepath.Join(out, config.EventsFileName))
	assert.FileExists(t, filepath.Join(out, "ExampleRaw"+config.CategoryFileExt))
	assert.FileExists(t, filepath.Join(out, "ExampleCal"+config.CategoryFileExt))

	t.Run("header", func(t *testing.T) {
		stdout, err := execute(t, "header", out, "--verify")
		require.NoError(t, err)
		assert.Contains(t, stdout, "ExampleRaw")
		assert.Contains(t, stdout, "ExampleCal")
		assert.Contains(t, stdout, "header matches registered categories")
	})

	t.Run("header json from category file", func(t *testing.T) {
		stdout, err := execute(t, "header", filepath.Join(out, "ExampleCal"+config.CategoryFileExt), "--json")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"ExampleCal"`)
	})

	t.Run("summary", func(t *testing.T) {
		stdout, err := execute(t, "query", "--dir", out, "--summary")
		require.NoError(t, err)
		assert.Contains(t, stdout, "CATEGORY")
		assert.Contains(t, stdout, "ExampleCal")
		assert.NotContains(t, stdout, "events ")
	})

	t.Run("sql", func(t *testing.T) {
		stdout, err := execute(t, "query", "--dir", out, `SELECT count(*) AS n FROM "events"`)
		require.NoError(t, err)
		assert.Contains(t, stdout, "20")
		assert.Contains(t, stdout, "(1 rows)")
	})

	t.Run("table without event", func(t *testing.T) {
		_, err := execute(t, "query", "--dir", out, "--table", "ExampleRaw")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, ExitCode(err))
	})
}

func TestRunWritesParameterTarget(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "events")
	target := filepath.Join(dir, "target.txt")
	cfgPath := filepath.Join(dir, "spark.yaml")

	_, err := execute(t, "record", events, "-n", "2")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfgPath, []byte("parameters:\n  target: "+target+"\n"), 0o644))

	_, err = execute(t, "--config", cfgPath, "run", events, "--output", filepath.Join(dir, "out"), "--no-progress")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ExampleLookup")
	assert.Contains(t, string(data), "ExampleCalPar")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitCommandError, ExitCode(WrapExitError(ExitCommandError, "bad", nil)))
	assert.Equal(t, ExitFailure, ExitCode(os.ErrClosed))

	err := WrapExitError(ExitFailure, "write", os.ErrPermission)
	assert.Equal(t, "write: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}
