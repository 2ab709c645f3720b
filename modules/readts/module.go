// Package readts provides ReadTimeSeries, which reads series from a
// datastore or a CSV file into the result collection.
//
// In discovery the command reads nothing. A literal TSID yields a
// placeholder series so that later commands can refer to it by identifier
// or alias before any data exists.
package readts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

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

// Reader is what ReadTimeSeries needs from a datastore handle.
type Reader interface {
	Read(ctx context.Context, id timeseries.Ident, start, end time.Time) (*timeseries.TimeSeries, error)
	List(ctx context.Context, pattern string) ([]timeseries.Ident, error)
}

// Command is [Alias = ]ReadTimeSeries(TSID, DataStore|InputFile, InputStart, InputEnd).
type Command struct {
	command.Base
	produced []*timeseries.TimeSeries
}

// New returns an unparsed ReadTimeSeries command.
func New() command.Command {
	return &Command{Base: command.NewBase("ReadTimeSeries", command.WithAlias())}
}

func (c *Command) Discoverable() {}

// ObjectList returns the series added by the last execution.
func (c *Command) ObjectList() []any {
	out := make([]any, len(c.produced))
	for i, ts := range c.produced {
		out[i] = ts
	}
	return out
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func (c *Command) Check(ctx context.Context, req request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("TSID", "DataStore", "InputFile", "InputStart", "InputEnd")
	v.OneOf("DataStore", "InputFile")
	tsid := v.Text("TSID")
	if v.Text("DataStore") != "" && tsid == "" {
		v.Fail("The TSID parameter must be specified when reading from a datastore.", "Specify a TSID or TSID pattern.")
	}
	if tsid != "" && !isPattern(tsid) && !strings.Contains(tsid, "${") {
		if _, err := timeseries.ParseIdent(tsid); err != nil {
			v.Fail(fmt.Sprintf("The TSID %q is invalid: %v", tsid, err), "Specify Location.Source.DataType.Interval.")
		}
	}
	if c.Alias() != "" && tsid != "" && isPattern(tsid) {
		v.Warn("An alias is only applied when the TSID pattern matches exactly one series.", "Use a literal TSID with an alias.")
	}
	start, okStart := v.DateTime(ctx, req, "InputStart", false)
	end, okEnd := v.DateTime(ctx, req, "InputEnd", false)
	if okStart && okEnd && end.Before(start) {
		v.Fail("InputEnd is before InputStart.", "Specify an InputEnd after InputStart.")
	}
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	c.produced = nil

	tsid, err := command.Expand(ctx, req, c.Parameters().Text("TSID"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand TSID: %v", err), "Check the property references.")
		return command.Outcome(c.Name(), phase, d)
	}
	tsid = strings.TrimSpace(tsid)

	var list []*timeseries.TimeSeries
	if phase == diag.Discovery {
		list = c.discover(tsid)
	} else {
		list = c.read(ctx, req, tsid)
	}
	if d.Highest(phase) >= diag.Failure {
		return command.Outcome(c.Name(), phase, d)
	}

	if c.Alias() != "" {
		if len(list) == 1 {
			list[0].Alias = c.Alias()
		} else if len(list) > 1 {
			d.Add(phase, diag.Warning, fmt.Sprintf("Alias %s not applied: %d series were read.", c.Alias(), len(list)),
				"Use a literal TSID with an alias.")
		}
	}
	for _, ts := range list {
		if _, ok := command.AddTimeSeries(ctx, req, d, phase, ts); !ok {
			break
		}
		c.produced = append(c.produced, ts)
	}
	if phase == diag.Run {
		if len(list) == 0 {
			d.Add(phase, diag.Warning, "No time series were read.", "Check the TSID and the input.")
		}
		ctxlog.FromContext(ctx).Info("📈 Time series read.", "count", len(c.produced))
	}
	return command.Outcome(c.Name(), phase, d)
}

func (c *Command) discover(tsid string) []*timeseries.TimeSeries {
	if tsid == "" || isPattern(tsid) || strings.Contains(tsid, "${") {
		return nil
	}
	id, err := timeseries.ParseIdent(tsid)
	if err != nil {
		return nil
	}
	return []*timeseries.TimeSeries{timeseries.NewPlaceholder(id)}
}

func (c *Command) read(ctx context.Context, req request.Requester, tsid string) []*timeseries.TimeSeries {
	d := c.Diagnostics()
	params := c.Parameters()

	start, end, ok := c.period(ctx, req)
	if !ok {
		return nil
	}

	if name := strings.TrimSpace(params.Text("DataStore")); name != "" {
		return c.readDataStore(ctx, req, name, tsid, start, end)
	}

	path, err := command.ResolvePath(ctx, req, params.Text("InputFile"))
	if err != nil {
		d.Add(diag.Run, diag.Failure, fmt.Sprintf("Cannot resolve InputFile: %v", err), "Check the InputFile parameter.")
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		d.Add(diag.Run, diag.Failure, fmt.Sprintf("Cannot open input file: %v", err), "Check that the file exists.")
		return nil
	}
	defer f.Close()
	all, err := timeseries.ReadCSV(f)
	if err != nil {
		d.Add(diag.Run, diag.Failure, fmt.Sprintf("Cannot read %s: %v", path, err), "Check the file format.")
		return nil
	}

	var (
		out      []*timeseries.TimeSeries
		problems []string
	)
	for _, ts := range all {
		if tsid != "" && !ts.Matches(tsid) {
			continue
		}
		ts.Ident.InputType, ts.Ident.InputName = "CSV", path
		sub, err := subset(ts, start, end)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Cannot limit %s to the input period: %v", ts.Ident.Key(), err))
			continue
		}
		out = append(out, sub)
	}
	c.seriesProblems(problems, len(out), "Check InputStart and InputEnd.")
	return out
}

func (c *Command) readDataStore(ctx context.Context, req request.Requester, name, tsid string, start, end time.Time) []*timeseries.TimeSeries {
	d := c.Diagnostics()
	results, ok := command.Request(ctx, req, d, diag.Run, "GetDataStore", request.Params("DataStore", name))
	if !ok {
		return nil
	}
	store, err := props.ObjectAs[Reader](results.Value("Handle"))
	if err != nil {
		d.Add(diag.Run, diag.Failure, fmt.Sprintf("Datastore %s cannot read time series: %v", name, err), "Use a time series datastore.")
		return nil
	}

	var ids []timeseries.Ident
	if isPattern(tsid) {
		if ids, err = store.List(ctx, tsid); err != nil {
			d.Add(diag.Run, diag.Failure, fmt.Sprintf("Cannot list time series in %s: %v", name, err), "Check the datastore.")
			return nil
		}
	} else {
		id, err := timeseries.ParseIdent(tsid)
		if err != nil {
			d.Add(diag.Run, diag.Failure, fmt.Sprintf("Invalid TSID %q: %v", tsid, err), "Specify Location.Source.DataType.Interval.")
			return nil
		}
		ids = []timeseries.Ident{id}
	}

	var (
		out      []*timeseries.TimeSeries
		problems []string
	)
	for _, id := range ids {
		ts, err := store.Read(ctx, id, start, end)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Cannot read %s from %s: %v", id.Key(), name, err))
			continue
		}
		ts.Ident.InputType, ts.Ident.InputName = name, ""
		out = append(out, ts)
	}
	c.seriesProblems(problems, len(out), "Check the TSID and the datastore contents.")
	return out
}

// seriesProblems records the series that could not be read. They only fail
// the command when nothing was read at all.
func (c *Command) seriesProblems(problems []string, read int, recommendation string) {
	sev := diag.Warning
	if read == 0 {
		sev = diag.Failure
	}
	for _, msg := range problems {
		c.Diagnostics().Add(diag.Run, sev, msg, recommendation)
	}
}

// period returns the command's input period, falling back to the global
// InputStart and InputEnd. Zero times mean "as much as is available".
func (c *Command) period(ctx context.Context, req request.Requester) (start, end time.Time, ok bool) {
	d := c.Diagnostics()
	params := c.Parameters()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"InputStart", &start}, {"InputEnd", &end}} {
		text := strings.TrimSpace(params.Text(p.name))
		if text == "" {
			v, err := req.PropContents(p.name)
			if err == nil && !v.IsAbsent() {
				if t, err := v.AsTime(); err == nil {
					*p.dst = t
				}
			}
			continue
		}
		t, err := command.RequestDateTime(ctx, req, text)
		if err != nil {
			d.Add(diag.Run, diag.Failure, fmt.Sprintf("Invalid %s %q: %v", p.name, text, err), fmt.Sprintf("Specify a valid %s.", p.name))
			return start, end, false
		}
		*p.dst = t
	}
	return start, end, true
}

// subset limits ts to [start, end]; zero bounds keep the series' own.
func subset(ts *timeseries.TimeSeries, start, end time.Time) (*timeseries.TimeSeries, error) {
	if (start.IsZero() && end.IsZero()) || ts.Len() == 0 {
		return ts, nil
	}
	if start.IsZero() {
		start = ts.Start()
	}
	if end.IsZero() {
		end = ts.End()
	}
	out, err := timeseries.New(ts.Ident, start, end)
	if err != nil {
		return nil, err
	}
	out.Alias, out.Description, out.Units = ts.Alias, ts.Description, ts.Units
	for i := 0; i < out.Len(); i++ {
		if v, ok := ts.Value(out.DateAt(i)); ok {
			out.SetValueAt(i, v)
		}
	}
	return out, nil
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("ReadTimeSeries", New)
	r.RegisterLegacyAlias("readTimeSeries", "ReadTimeSeries")
}
