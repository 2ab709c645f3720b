package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/fsutil"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/progress"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/report"
	"github.com/specialistvlad/tsflow/internal/script"
	"github.com/specialistvlad/tsflow/internal/tsdb"
)

// Run executes every script named by the configuration, each with a fresh
// processor, and returns one report per script. Command problems are in the
// reports; the error is for problems that stop the whole run.
func (app *App) Run(ctx context.Context) ([]*report.Report, error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	app.logger.Debug("App.Run method started.")

	app.healthCheckServer()
	defer app.closeHealthCheckServer()

	if app.config.ProgressURL != "" {
		pub, err := progress.DialSocketIO(ctx, progress.SocketIOOptions{URL: app.config.ProgressURL})
		if err != nil {
			app.logger.Warn("Progress publisher unavailable, continuing without it.", "url", app.config.ProgressURL, "error", err)
		} else {
			app.publisher = pub
			defer func() {
				pub.Close()
				app.publisher = nil
			}()
		}
	}

	scripts, err := findScripts(app.config.ScriptPath)
	if err != nil {
		return nil, err
	}
	app.logger.Debug("Command files found.", "count", len(scripts))

	var reports []*report.Report
	for _, path := range scripts {
		if app.canceled.Load() {
			app.logger.Info("🛑 Canceled, remaining scripts skipped.", "next", path)
			break
		}
		rep, err := app.runScript(ctx, path)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}

	if app.config.ReportPath != "" {
		if err := report.WriteFile(app.config.ReportPath, reports...); err != nil {
			return reports, fmt.Errorf("writing report: %w", err)
		}
		app.logger.Info("📝 Report written.", "path", app.config.ReportPath)
	}
	app.logger.Debug("App.Run method finished.")
	return reports, nil
}

// findScripts returns path itself for a file, or every command file under a
// directory in lexical order.
func findScripts(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("command file: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, script.Extension)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no *%s files found in %s", script.Extension, path)
	}
	sort.Strings(files)
	return files, nil
}

func (app *App) runScript(ctx context.Context, path string) (*report.Report, error) {
	ctx = ctxlog.With(ctx, "script", path)
	logger := ctxlog.FromContext(ctx)

	cmds, err := script.LoadFile(ctx, path, app.registry)
	if err != nil {
		return nil, err
	}
	initial, err := app.initialProperties(path)
	if err != nil {
		return nil, err
	}

	listeners := []progress.Listener{progress.Log{}}
	listeners = append(listeners, app.listeners...)
	if app.publisher != nil {
		listeners = append(listeners, app.publisher)
	}
	proc := processor.New(processor.Options{Properties: initial, Listeners: listeners})
	defer func() {
		if err := proc.Close(); err != nil {
			logger.Warn("Failed to close processor resources.", "error", err)
		}
	}()
	if err := app.openDataStores(ctx, proc); err != nil {
		return nil, err
	}
	proc.SetCommands(cmds)

	app.current.Store(proc)
	defer app.current.Store(nil)

	logger.Info("🚀 Starting script.", "commands", len(cmds))
	result, err := proc.Run(ctx, processor.RunOptions{Phase: diag.Discovery})
	if err != nil {
		return nil, fmt.Errorf("discovery of %s: %w", path, err)
	}
	switch {
	case app.canceled.Load():
		result.Canceled = true
	case !app.config.CheckOnly:
		to := app.config.To
		if to > len(cmds) {
			to = len(cmds)
		}
		from := app.config.From
		if from > len(cmds) {
			from = len(cmds)
		}
		result, err = proc.Run(ctx, processor.RunOptions{From: from, To: to, Phase: diag.Run})
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", path, err)
		}
	}

	rep := report.New(path, result)
	logger.Info("🏁 Script finished.", "success", rep.Success, "severity", rep.Severity.String(), "duration", rep.Duration)
	return rep, nil
}

// initialProperties builds the seed properties of a script's processor. The
// working directory defaults to the directory holding the script.
func (app *App) initialProperties(path string) (*props.Bag, error) {
	bag := props.New()

	wd := app.config.WorkingDir
	if wd == "" {
		wd = filepath.Dir(path)
	}
	abs, err := filepath.Abs(wd)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	bag.Set(processor.PropWorkingDir, props.StringValue(abs), props.HowSetFromPersistent)

	for _, p := range []struct{ key, text string }{
		{processor.PropInputStart, app.config.InputStart},
		{processor.PropInputEnd, app.config.InputEnd},
	} {
		if strings.TrimSpace(p.text) == "" {
			continue
		}
		t, err := processor.ParseDateTime(p.text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.key, err)
		}
		bag.Set(p.key, props.TimeValue(t), props.HowSetFromPersistent)
	}

	keys := make([]string, 0, len(app.config.Properties))
	for k := range app.config.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bag.Set(k, props.StringValue(app.config.Properties[k]), props.HowSetFromPersistent)
	}
	return bag, nil
}

// openDataStores opens the datastores declared in the configuration and
// registers them with proc.
func (app *App) openDataStores(ctx context.Context, proc *processor.Processor) error {
	logger := ctxlog.FromContext(ctx)
	for _, ds := range app.config.DataStores {
		store, err := tsdb.Open(ctx, ds.Path)
		if err != nil {
			return fmt.Errorf("opening datastore %s: %w", ds.Name, err)
		}
		if err := proc.State().SetDataStore(ds.Name, store); err != nil {
			store.Close()
			return fmt.Errorf("registering datastore %s: %w", ds.Name, err)
		}
		logger.Debug("Datastore opened from configuration.", "datastore", ds.Name, "path", ds.Path)
	}
	return nil
}
