package command

import (
	"context"
	"strings"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Comment is a script line that is kept for position but never executed:
// blank lines, `#` comments and lines inside `/* ... */` blocks.
type Comment struct {
	Base
	text string
}

// NewComment wraps a non-executing line.
func NewComment(text string) *Comment {
	c := &Comment{Base: NewBase("#"), text: text}
	c.state = Parsed
	return c
}

func (c *Comment) Parse(text string) error {
	c.text = text
	c.state = Parsed
	return nil
}

func (c *Comment) Check(context.Context, request.Requester, *props.Bag) error { return nil }

func (c *Comment) Execute(context.Context, diag.Phase, request.Requester) error { return nil }

func (c *Comment) String() string { return c.text }

// IsComment reports whether a script line does not hold a command.
func IsComment(line string) bool {
	s := strings.TrimSpace(line)
	return s == "" || strings.HasPrefix(s, "#")
}

// Invalid stands in for a line that could not be turned into a command. It
// stays UNPARSED with the parse problem recorded as an INITIALIZATION
// FAILURE, so the processor reports it and moves on.
type Invalid struct {
	Base
	text string
	Err  error
}

// NewInvalid records err against the line.
func NewInvalid(name, text string, err error) *Invalid {
	c := &Invalid{Base: NewBase(name), text: text, Err: err}
	c.diags.Add(diag.Initialization, diag.Failure, err.Error(), "Correct the command syntax or name.")
	c.diags.Refresh()
	return c
}

func (c *Invalid) Parse(text string) error {
	c.text = text
	return c.Err
}

func (c *Invalid) Check(context.Context, request.Requester, *props.Bag) error { return c.Err }

func (c *Invalid) Execute(context.Context, diag.Phase, request.Requester) error { return c.Err }

func (c *Invalid) String() string { return c.text }
