// Package fill provides FillConstant and FillInterpolate, which replace
// missing values of result series in place.
package fill

import (
	"context"
	"fmt"
	"strconv"
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

var tsListChoices = []string{"AllTS", "AllMatchingTSID", "LastMatchingTSID"}

// checkSelection validates the TSList/TSID pair shared by both commands.
func checkSelection(v *command.Validator) {
	mode := v.Choice("TSList", false, "", tsListChoices...)
	if mode == "" && v.Text("TSID") == "" {
		v.Fail("The TSID or TSList parameter must be specified.", "Specify TSID, or TSList=AllTS.")
	}
	if mode != "" && mode != "AllTS" && v.Text("TSID") == "" {
		v.Fail(fmt.Sprintf("TSList=%s requires the TSID parameter.", mode), "Specify a TSID pattern.")
	}
}

// selection resolves the series to fill. A TSID without TSList selects
// every match.
func selection(ctx context.Context, req request.Requester, d *diag.Diagnostics, params *props.Bag) (command.Selection, bool) {
	mode := strings.TrimSpace(params.Text("TSList"))
	if mode == "" {
		mode = "AllMatchingTSID"
	}
	sel, ok := command.SelectTimeSeries(ctx, req, d, diag.Run, mode, params.Text("TSID"))
	if !ok {
		return sel, false
	}
	if sel.Len() == 0 {
		d.Add(diag.Run, diag.Warning, "No time series matched the selection.", "Check the TSID and TSList parameters.")
	}
	return sel, true
}

// apply runs fn on a copy of every selected series and stores each copy
// back at its index.
func apply(ctx context.Context, req request.Requester, d *diag.Diagnostics, sel command.Selection, fn func(*timeseries.TimeSeries) int) int {
	total := 0
	for i, ts := range sel.List {
		if ts.IsPlaceholder() {
			d.Add(diag.Run, diag.Failure, fmt.Sprintf("%s holds no data.", ts.Label()), "Read the series before filling it.")
			continue
		}
		filled := ts.Clone()
		n := fn(filled)
		if !command.UpdateTimeSeries(ctx, req, d, diag.Run, sel.Indices[i], filled) {
			continue
		}
		ctxlog.FromContext(ctx).Debug("Filled missing values.", "ts", ts.Label(), "filled", n)
		total += n
	}
	return total
}

// ConstantCommand is FillConstant(TSID, TSList, ConstantValue, FillStart, FillEnd).
type ConstantCommand struct {
	command.Base
}

// NewConstant returns an unparsed FillConstant command.
func NewConstant() command.Command {
	return &ConstantCommand{Base: command.NewBase("FillConstant")}
}

func (c *ConstantCommand) Check(ctx context.Context, req request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("TSID", "TSList", "ConstantValue", "FillStart", "FillEnd")
	checkSelection(v)
	v.Float("ConstantValue", true)
	start, okStart := v.DateTime(ctx, req, "FillStart", false)
	end, okEnd := v.DateTime(ctx, req, "FillEnd", false)
	if okStart && okEnd && end.Before(start) {
		v.Fail("FillEnd is before FillStart.", "Specify a FillEnd after FillStart.")
	}
	return v.Finish()
}

func (c *ConstantCommand) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	text, err := command.Expand(ctx, req, params.Text("ConstantValue"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand ConstantValue: %v", err), "Check the property references.")
		return command.Outcome(c.Name(), phase, d)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("ConstantValue %q is not a number.", text), "Specify ConstantValue as a number.")
		return command.Outcome(c.Name(), phase, d)
	}

	var start, end time.Time
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"FillStart", &start}, {"FillEnd", &end}} {
		s := strings.TrimSpace(params.Text(p.name))
		if s == "" {
			continue
		}
		t, err := command.RequestDateTime(ctx, req, s)
		if err != nil {
			d.Add(phase, diag.Failure, fmt.Sprintf("Invalid %s %q: %v", p.name, s, err), fmt.Sprintf("Specify a valid %s.", p.name))
			return command.Outcome(c.Name(), phase, d)
		}
		*p.dst = t
	}

	sel, ok := selection(ctx, req, d, params)
	if !ok {
		return command.Outcome(c.Name(), phase, d)
	}
	n := apply(ctx, req, d, sel, func(ts *timeseries.TimeSeries) int {
		return timeseries.FillConstant(ts, value, start, end)
	})
	ctxlog.FromContext(ctx).Info("🩹 Filled missing values with a constant.", "series", sel.Len(), "filled", n)
	return command.Outcome(c.Name(), phase, d)
}

// InterpolateCommand is FillInterpolate(TSID, TSList, MaxIntervals).
type InterpolateCommand struct {
	command.Base
}

// NewInterpolate returns an unparsed FillInterpolate command.
func NewInterpolate() command.Command {
	return &InterpolateCommand{Base: command.NewBase("FillInterpolate")}
}

func (c *InterpolateCommand) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("TSID", "TSList", "MaxIntervals")
	checkSelection(v)
	v.Int("MaxIntervals", false, 0)
	return v.Finish()
}

func (c *InterpolateCommand) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	maxIntervals := 0
	if s := strings.TrimSpace(params.Text("MaxIntervals")); s != "" {
		expanded, err := command.Expand(ctx, req, s)
		if err == nil {
			maxIntervals, err = strconv.Atoi(strings.TrimSpace(expanded))
		}
		if err != nil || maxIntervals < 0 {
			d.Add(phase, diag.Failure, fmt.Sprintf("MaxIntervals %q is not a non-negative integer.", s), "Specify MaxIntervals as 0 or more.")
			return command.Outcome(c.Name(), phase, d)
		}
	}

	sel, ok := selection(ctx, req, d, params)
	if !ok {
		return command.Outcome(c.Name(), phase, d)
	}
	n := apply(ctx, req, d, sel, func(ts *timeseries.TimeSeries) int {
		return timeseries.FillInterpolate(ts, maxIntervals)
	})
	ctxlog.FromContext(ctx).Info("🩹 Filled missing values by interpolation.", "series", sel.Len(), "filled", n)
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the commands with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("FillConstant", NewConstant)
	r.RegisterCommand("FillInterpolate", NewInterpolate)
	r.RegisterLegacyAlias("fillConstant", "FillConstant")
	r.RegisterLegacyAlias("fillInterpolate", "FillInterpolate")
}
