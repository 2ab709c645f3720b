// Package env_vars provides SetPropertyFromEnvironment, which copies an
// environment variable into a global property.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is SetPropertyFromEnvironment(EnvVariable, PropertyName, DefaultValue).
type Command struct {
	command.Base
	lookup func(string) (string, bool)
}

// New returns an unparsed SetPropertyFromEnvironment command reading the
// process environment.
func New() command.Command {
	return NewWithLookup(os.LookupEnv)
}

// NewWithLookup is New with a replaceable environment.
func NewWithLookup(lookup func(string) (string, bool)) command.Command {
	return &Command{Base: command.NewBase("SetPropertyFromEnvironment"), lookup: lookup}
}

func (c *Command) Discoverable() {}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("EnvVariable", "PropertyName", "DefaultValue")
	v.Required("EnvVariable")
	v.Required("PropertyName")
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	name := strings.TrimSpace(params.Text("EnvVariable"))
	value, ok := c.lookup(name)
	if !ok {
		if !params.Has("DefaultValue") {
			d.Add(phase, diag.Warning, fmt.Sprintf("Environment variable %s is not set.", name),
				"Set the variable or specify DefaultValue.")
			return command.Outcome(c.Name(), phase, d)
		}
		value = params.Text("DefaultValue")
	}
	command.Request(ctx, req, d, phase, "SetProperty",
		request.Params("PropertyName", strings.TrimSpace(params.Text("PropertyName")), "PropertyValue", value))
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("SetPropertyFromEnvironment", New)
}
