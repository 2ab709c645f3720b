// Package writets provides WriteTimeSeries, which writes result series to a
// CSV file or a datastore.
package writets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
	"github.com/specialistvlad/tsflow/internal/timeseries"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Writer is what WriteTimeSeries needs from a datastore handle.
type Writer interface {
	Write(ctx context.Context, ts *timeseries.TimeSeries) error
}

// Command is WriteTimeSeries(OutputFile|DataStore, TSID, TSList).
type Command struct {
	command.Base
}

// New returns an unparsed WriteTimeSeries command.
func New() command.Command {
	return &Command{Base: command.NewBase("WriteTimeSeries")}
}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("OutputFile", "DataStore", "TSID", "TSList")
	v.OneOf("OutputFile", "DataStore")
	mode := v.Choice("TSList", false, "AllTS", "AllTS", "AllMatchingTSID", "LastMatchingTSID")
	if mode != "AllTS" && v.Text("TSID") == "" {
		v.Fail(fmt.Sprintf("TSList=%s requires the TSID parameter.", mode), "Specify a TSID pattern.")
	}
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	mode := strings.TrimSpace(params.Text("TSList"))
	if mode == "" {
		mode = "AllTS"
		if params.Text("TSID") != "" {
			mode = "AllMatchingTSID"
		}
	}
	sel, ok := command.SelectTimeSeries(ctx, req, d, phase, mode, params.Text("TSID"))
	if !ok {
		return command.Outcome(c.Name(), phase, d)
	}
	if sel.Len() == 0 {
		d.Add(phase, diag.Warning, "No time series to write.", "Check the TSID and TSList parameters.")
		return command.Outcome(c.Name(), phase, d)
	}
	for _, ts := range sel.List {
		if ts.IsPlaceholder() {
			d.Add(phase, diag.Failure, fmt.Sprintf("%s holds no data.", ts.Label()), "Read the series before writing it.")
		}
	}
	if d.Highest(phase) >= diag.Failure {
		return command.Outcome(c.Name(), phase, d)
	}

	if name := strings.TrimSpace(params.Text("DataStore")); name != "" {
		c.writeDataStore(ctx, req, phase, name, sel.List)
	} else {
		c.writeFile(ctx, req, phase, params.Text("OutputFile"), sel.List)
	}
	return command.Outcome(c.Name(), phase, d)
}

func (c *Command) writeFile(ctx context.Context, req request.Requester, phase diag.Phase, output string, list []*timeseries.TimeSeries) {
	d := c.Diagnostics()
	path, err := command.ResolvePath(ctx, req, output)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot resolve OutputFile: %v", err), "Check the OutputFile parameter.")
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot create output folder: %v", err), "Check permissions.")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot create output file: %v", err), "Check permissions.")
		return
	}
	if err := timeseries.WriteCSV(f, list); err != nil {
		f.Close()
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot write %s: %v", path, err), "Write series with the same interval to one file.")
		return
	}
	if err := f.Close(); err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot close %s: %v", path, err), "Check disk space.")
		return
	}
	ctxlog.FromContext(ctx).Info("💾 Time series written.", "count", len(list), "file", path)
}

func (c *Command) writeDataStore(ctx context.Context, req request.Requester, phase diag.Phase, name string, list []*timeseries.TimeSeries) {
	d := c.Diagnostics()
	results, ok := command.Request(ctx, req, d, phase, "GetDataStore", request.Params("DataStore", name))
	if !ok {
		return
	}
	store, err := props.ObjectAs[Writer](results.Value("Handle"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Datastore %s cannot store time series: %v", name, err), "Use a time series datastore.")
		return
	}
	written := 0
	for _, ts := range list {
		if err := store.Write(ctx, ts); err != nil {
			d.Add(phase, diag.Failure, fmt.Sprintf("Cannot write %s to %s: %v", ts.Label(), name, err), "Check the datastore.")
			continue
		}
		written++
	}
	ctxlog.FromContext(ctx).Info("💾 Time series written.", "count", written, "datastore", name)
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("WriteTimeSeries", New)
	r.RegisterLegacyAlias("writeTimeSeries", "WriteTimeSeries")
}
