package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestExecute_Version(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	require.NoError(t, Execute(context.Background(), []string{"version"}, out))
	assert.Contains(t, out.String(), "tsflow dev")
}

func TestExecute_Commands(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	require.NoError(t, Execute(context.Background(), []string{"commands"}, out))
	for _, want := range []string{"ReadTimeSeries\n", "FillInterpolate\n", "Deprecated names:", "readTimeSeries -> ReadTimeSeries"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()
	script := writeScript(t, "flow.tsflow", "Message(Message=hi)\n")

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "no path", args: []string{"run"}, wantMsg: "requires exactly one"},
		{name: "two paths", args: []string{"check", script, script}, wantMsg: "got 2"},
		{name: "unknown flag", args: []string{"run", "--bogus", script}, wantMsg: "unknown flag: --bogus"},
		{name: "bad log format", args: []string{"run", "--log-format", "xml", script}, wantMsg: "invalid log format"},
		{name: "bad range", args: []string{"run", "--from", "2", "--to", "1", script}, wantMsg: "must be greater than"},
		{name: "missing config", args: []string{"run", "--config", filepath.Join(t.TempDir(), "none.hcl"), script}, wantMsg: "reading config file"},
		{name: "range on check", args: []string{"check", "--from", "1", script}, wantMsg: "unknown flag: --from"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Execute(context.Background(), tc.args, &bytes.Buffer{})
			assert.Equal(t, ExitUsage, exitCode(t, err))
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestExecute_Run(t *testing.T) {
	t.Parallel()

	ok := writeScript(t, "ok.tsflow", "Message(Message=hello)\n")
	out := &bytes.Buffer{}
	err := Execute(context.Background(), []string{"run", ok}, out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ok+": SUCCESS (1 commands")

	bad := writeScript(t, "bad.tsflow", "Message(Message=fine)\nMessage(Message=broken, CommandStatus=FAILURE)\n")
	out.Reset()
	err = Execute(context.Background(), []string{"run", bad}, out)
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Equal(t, "1 of 1 command files failed", err.Error())
	assert.Contains(t, out.String(), "first failure at command 1")

	out.Reset()
	err = Execute(context.Background(), []string{"check", bad}, out)
	require.NoError(t, err, "check does not run non-discoverable commands")
	assert.Contains(t, out.String(), bad+": SUCCESS")

	err = Execute(context.Background(), []string{"run", filepath.Join(t.TempDir(), "missing.tsflow")}, &bytes.Buffer{})
	assert.Equal(t, ExitFailure, exitCode(t, err))
}

func TestExecute_ConfigFileAndFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tsflow.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log_level = "info"
properties = {
  Basin = "upper"
  Year  = "2020"
}
`), 0o600))
	script := writeScript(t, "flow.tsflow", `Message(Message="${Basin} ${Year}")`)

	out := &bytes.Buffer{}
	err := Execute(context.Background(), []string{"run", "-c", cfgPath, "-p", "Basin=lower", script}, out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "lower 2020", "flags win over the configuration file")
	assert.NotContains(t, out.String(), "level=DEBUG")
}

func TestExecute_Canceled(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "flow.tsflow", "Message(Message=hi)\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Execute(ctx, []string{"run", script}, &bytes.Buffer{})
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Equal(t, "interrupted", err.Error())
}
