// Package evaluate provides Evaluate, which computes an expression over the
// global properties and stores the result as a property.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/expr"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is Evaluate(Expression, PropertyName).
type Command struct {
	command.Base
	parsed *expr.Expression
}

// New returns an unparsed Evaluate command.
func New() command.Command {
	return &Command{Base: command.NewBase("Evaluate")}
}

// Discoverable lets discovery confirm the expression parses. Nothing is
// evaluated until RUN.
func (c *Command) Discoverable() {}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("Expression", "PropertyName")
	v.Required("PropertyName")
	c.parsed = nil
	if src := v.Required("Expression"); src != "" {
		e, err := expr.Parse(src)
		if err != nil {
			v.Fail(fmt.Sprintf("The expression cannot be parsed: %v", err),
				fmt.Sprintf("Correct the expression. Available functions: %s.", strings.Join(expr.FunctionNames(), ", ")))
		} else {
			c.parsed = e
		}
	}
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	if c.parsed == nil {
		d.Add(phase, diag.Failure, "The expression was not parsed.", "Check the command before running it.")
		return command.Outcome(c.Name(), phase, d)
	}
	if phase == diag.Discovery {
		return nil
	}

	name := strings.TrimSpace(c.Parameters().Text("PropertyName"))
	properties, ok := command.Request(ctx, req, d, phase, "GetProperties", nil)
	if !ok {
		return command.Outcome(c.Name(), phase, d)
	}
	result, err := c.parsed.Evaluate(properties)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot evaluate %q: %v", c.parsed, err),
			"Set the referenced properties before this command.")
		return command.Outcome(c.Name(), phase, d)
	}
	if _, ok := command.Request(ctx, req, d, phase, "SetProperty", request.Params("PropertyName", name, "PropertyValue", result)); !ok {
		return command.Outcome(c.Name(), phase, d)
	}
	ctxlog.FromContext(ctx).Info("🧮 Expression evaluated.", "property", name, "value", result.String())
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("Evaluate", New)
}
