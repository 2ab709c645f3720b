package command

import (
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
)

// Base carries the state shared by every command. Concrete commands embed it
// and add Check and Execute.
type Base struct {
	name         string
	alias        string
	acceptsAlias bool
	params       *props.Bag
	diags        *diag.Diagnostics
	state        State
}

// Option configures a Base.
type Option func(*Base)

// WithAlias allows the `Alias = Name(...)` form for the command.
func WithAlias() Option {
	return func(b *Base) { b.acceptsAlias = true }
}

// NewBase returns the embedded part of a command named name.
func NewBase(name string, opts ...Option) Base {
	b := Base{name: name, params: props.New(), diags: diag.New()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *Base) Name() string                   { return b.name }
func (b *Base) Alias() string                  { return b.alias }
func (b *Base) AcceptsAlias() bool             { return b.acceptsAlias }
func (b *Base) Parameters() *props.Bag         { return b.params }
func (b *Base) Diagnostics() *diag.Diagnostics { return b.diags }
func (b *Base) State() State                   { return b.state }
func (b *Base) SetState(s State)               { b.state = s }

// SetParameters replaces the parameter bag, as an editor would after the
// user changes the command.
func (b *Base) SetParameters(params *props.Bag) {
	b.params = params.Clone()
}

// Parse tokenizes the command text into the parameter bag. The name in the
// text is not compared with the command's name; the registry has already
// chosen the command from it, possibly through a legacy alias.
func (b *Base) Parse(text string) error {
	line, err := SplitLine(text)
	if err != nil {
		return err
	}
	if line.Alias != "" && !b.acceptsAlias {
		return &SyntaxError{Text: text, Msg: b.name + " does not accept an alias"}
	}
	params, err := props.Parse(line.Params, props.DefaultDelimiter)
	if err != nil {
		return &SyntaxError{Text: text, Msg: "invalid parameters", Err: err}
	}
	b.alias = line.Alias
	b.params = params
	b.state = Parsed
	return nil
}

// String renders the command back to script text. Parameters computed at
// run time are left out.
func (b *Base) String() string {
	return Format(b.alias, b.name, b.params.Serialize(props.DefaultDelimiter))
}
