// Package message provides Message, which logs text and records it in the
// command's diagnostics, and Exit, which stops the run after the current
// command.
package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Command is Message(Message, CommandStatus).
type Command struct {
	command.Base
}

// New returns an unparsed Message command.
func New() command.Command {
	return &Command{Base: command.NewBase("Message")}
}

func (c *Command) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("Message", "CommandStatus")
	v.Required("Message")
	v.Choice("CommandStatus", false, "SUCCESS", "SUCCESS", "WARNING", "FAILURE")
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	text, err := command.Expand(ctx, req, params.Text("Message"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand Message: %v", err), "Check the property references.")
		return command.Outcome(c.Name(), phase, d)
	}

	status := diag.Success
	if s := strings.TrimSpace(params.Text("CommandStatus")); s != "" {
		if status, err = diag.ParseSeverity(s); err != nil {
			d.Add(phase, diag.Failure, fmt.Sprintf("Invalid CommandStatus %q.", s), "Specify SUCCESS, WARNING or FAILURE.")
			return command.Outcome(c.Name(), phase, d)
		}
	}

	logger := ctxlog.FromContext(ctx)
	switch status {
	case diag.Failure:
		logger.Error("💬 " + text)
	case diag.Warning:
		logger.Warn("💬 " + text)
	default:
		logger.Info("💬 " + text)
	}
	if status > diag.Success {
		d.Add(phase, status, text, "See the command file for the reason this message is shown.")
	}
	return command.Outcome(c.Name(), phase, d)
}

// ExitCommand is Exit(), which cancels the remaining commands.
type ExitCommand struct {
	command.Base
}

// NewExit returns an unparsed Exit command.
func NewExit() command.Command {
	return &ExitCommand{Base: command.NewBase("Exit")}
}

func (c *ExitCommand) Check(_ context.Context, _ request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed()
	return v.Finish()
}

func (c *ExitCommand) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	if _, ok := command.Request(ctx, req, d, phase, "CancelProcessing", nil); ok {
		ctxlog.FromContext(ctx).Info("🛑 Exit requested, skipping remaining commands.")
	}
	return command.Outcome(c.Name(), phase, d)
}

// Register registers the commands with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("Message", New)
	r.RegisterCommand("Exit", NewExit)
}
