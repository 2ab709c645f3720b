// Package setworkingdir provides SetWorkingDir, which changes the directory
// that relative file paths in later commands are resolved against.
package setworkingdir

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is SetWorkingDir(WorkingDir).
type Command struct {
	command.Base
}

// New returns an unparsed SetWorkingDir command.
func New() command.Command {
	return &Command{Base: command.NewBase("SetWorkingDir")}
}

func (c *Command) Discoverable() {}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("WorkingDir")
	v.Required("WorkingDir")
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)

	dir, err := command.ResolvePath(ctx, req, c.Parameters().Text("WorkingDir"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot resolve WorkingDir: %v", err), "Check the WorkingDir parameter.")
		return command.Outcome(c.Name(), phase, d)
	}

	if phase == diag.Run {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			d.Add(phase, diag.Warning, fmt.Sprintf("Working directory %q does not exist.", dir),
				"Create the directory or correct the WorkingDir parameter.")
		}
	}

	if err := req.SetPropContents("WorkingDir", props.StringValue(dir)); err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot set WorkingDir: %v", err), "This is a software problem. Report it to the developers.")
		return command.Outcome(c.Name(), phase, d)
	}
	ctxlog.FromContext(ctx).Debug("Working directory set.", "dir", dir)
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("SetWorkingDir", New)
}
