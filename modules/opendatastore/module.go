// Package opendatastore provides OpenDataStore, which opens a SQLite time
// series database and registers it with the processor under a name.
package opendatastore

import (
	"context"
	"fmt"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
	"github.com/specialistvlad/tsflow/internal/tsdb"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is OpenDataStore(DataStore, DatabaseFile).
type Command struct {
	command.Base
}

// New returns an unparsed OpenDataStore command.
func New() command.Command {
	return &Command{Base: command.NewBase("OpenDataStore")}
}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("DataStore", "DatabaseFile")
	v.Required("DataStore")
	v.Required("DatabaseFile")
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	name, err := command.Expand(ctx, req, params.Text("DataStore"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand DataStore: %v", err), "Check the property references.")
		return command.Outcome(c.Name(), phase, d)
	}
	path := params.Text("DatabaseFile")
	if path != ":memory:" {
		if path, err = command.ResolvePath(ctx, req, path); err != nil {
			d.Add(phase, diag.Failure, fmt.Sprintf("Cannot resolve DatabaseFile: %v", err), "Check the DatabaseFile parameter.")
			return command.Outcome(c.Name(), phase, d)
		}
	}

	store, err := tsdb.Open(ctx, path)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot open datastore %s: %v", name, err), "Check that the database file can be created or read.")
		return command.Outcome(c.Name(), phase, d)
	}
	if _, ok := command.Request(ctx, req, d, phase, "SetDataStore", request.Params("DataStore", name, "Handle", store)); !ok {
		store.Close()
		return command.Outcome(c.Name(), phase, d)
	}
	ctxlog.FromContext(ctx).Info("🗄️ Datastore opened.", "datastore", name, "path", path)
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("OpenDataStore", New)
}
