package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/tsflow/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.tsflow")
	err := os.WriteFile(filePath, []byte("Message(Message=\"hello from main\")\n"), 0600)
	require.NoError(t, err, "failed to set up test file")

	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{"run", filePath})

	// --- Assert ---
	require.NoError(t, runErr)
	require.Contains(t, out.String(), "hello from main")
	require.Contains(t, out.String(), "SUCCESS")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.True(t, strings.Contains(err.Error(), "unknown flag: --this-is-not-a-valid-flag"))
}

func TestRun_FailedScript(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.tsflow")
	err := os.WriteFile(filePath, []byte("ReadTimeSeries(InputFile=\"missing.csv\")\n"), 0600)
	require.NoError(t, err, "failed to set up test file")

	// --- Act ---
	runErr := run(context.Background(), &bytes.Buffer{}, []string{"run", filePath})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(runErr, &exitErr))
	require.Equal(t, cli.ExitFailure, exitErr.Code)
}
