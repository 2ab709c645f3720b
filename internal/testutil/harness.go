// Package testutil holds helpers shared by package tests: a log buffer, a
// processor built from script text, and an end-to-end harness that runs
// command files through the application.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/tsflow/internal/app"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/report"
	"github.com/specialistvlad/tsflow/internal/script"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context carrying a debug logger that writes to buf.
// With TSFLOW_TEST_LOGS=true the output is dumped when the test ends.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if os.Getenv("TSFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// NewProcessor parses text with the given modules, or the core modules when
// none are given, and returns a processor holding the commands. Initial
// properties are taken from initial, which may be nil.
func NewProcessor(t *testing.T, text string, initial *props.Bag, modules ...registry.Module) *processor.Processor {
	t.Helper()
	if len(modules) == 0 {
		modules = app.CoreModules()
	}
	ctx, _ := Context(t)
	cmds, err := script.Parse(ctx, strings.NewReader(text), registry.New(modules...))
	require.NoError(t, err)

	p := processor.New(processor.Options{Properties: initial})
	p.SetCommands(cmds)
	t.Cleanup(func() { p.Close() })
	return p
}

// HarnessResult holds the outcomes of an end-to-end run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	Reports   []*report.Report
	Err       error
	App       *app.App
}

// RunScripts writes files into a temporary directory and runs the entry
// named by path, a file or a directory relative to it, through the app.
// configure may adjust the configuration before the app is built.
func RunScripts(t *testing.T, files map[string]string, path string, configure func(*app.Config)) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	cfg := app.Config{
		ScriptPath: filepath.Join(dir, path),
		LogLevel:   "debug",
		LogFormat:  "text",
	}
	if configure != nil {
		configure(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(logBuffer, validated)
	reports, runErr := testApp.Run(context.Background())

	if os.Getenv("TSFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	return &HarnessResult{
		Dir:       dir,
		LogOutput: logBuffer.String(),
		Reports:   reports,
		Err:       runErr,
		App:       testApp,
	}
}
