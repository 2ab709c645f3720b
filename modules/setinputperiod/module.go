// Package setinputperiod provides SetInputPeriod, which sets the global
// InputStart and InputEnd used by read commands without their own period.
package setinputperiod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is SetInputPeriod(InputStart, InputEnd).
type Command struct {
	command.Base
}

// New returns an unparsed SetInputPeriod command.
func New() command.Command {
	return &Command{Base: command.NewBase("SetInputPeriod")}
}

func (c *Command) Discoverable() {}

func (c *Command) Check(ctx context.Context, req request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("InputStart", "InputEnd")
	if v.Text("InputStart") == "" && v.Text("InputEnd") == "" {
		v.Fail("At least one of InputStart and InputEnd must be specified.", "Specify InputStart, InputEnd or both.")
	}
	start, okStart := v.DateTime(ctx, req, "InputStart", false)
	end, okEnd := v.DateTime(ctx, req, "InputEnd", false)
	if okStart && okEnd && end.Before(start) {
		v.Fail(fmt.Sprintf("InputEnd %s is before InputStart %s.", end.Format(props.DateTimeLayout), start.Format(props.DateTimeLayout)),
			"Specify an InputEnd after InputStart.")
	}
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	var start, end time.Time
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"InputStart", &start}, {"InputEnd", &end}} {
		text := strings.TrimSpace(params.Text(p.name))
		if text == "" {
			continue
		}
		t, err := command.RequestDateTime(ctx, req, text)
		if err != nil {
			d.Add(phase, diag.Failure, fmt.Sprintf("Invalid %s %q: %v", p.name, text, err), fmt.Sprintf("Specify a valid %s.", p.name))
			continue
		}
		*p.dst = t
	}
	if d.Highest(phase) >= diag.Failure {
		return command.Outcome(c.Name(), phase, d)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		d.Add(phase, diag.Failure, "InputEnd is before InputStart.", "Specify an InputEnd after InputStart.")
		return command.Outcome(c.Name(), phase, d)
	}

	if !start.IsZero() {
		c.set(phase, req, "InputStart", start)
	}
	if !end.IsZero() {
		c.set(phase, req, "InputEnd", end)
	}
	return command.Outcome(c.Name(), phase, d)
}

func (c *Command) set(phase diag.Phase, req request.Requester, key string, t time.Time) {
	if err := req.SetPropContents(key, props.TimeValue(t)); err != nil {
		c.Diagnostics().Add(phase, diag.Failure, fmt.Sprintf("Cannot set %s: %v", key, err), "This is a software problem. Report it to the developers.")
	}
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("SetInputPeriod", New)
}
