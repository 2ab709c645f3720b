// Package command defines the unit of work executed by the processor.
//
// A command is parsed from one line of script text, checked against its
// parameters, and executed in the DISCOVERY or RUN phase. Everything a
// command learns or changes outside itself goes through a request.Requester;
// a command never holds a reference to another command or to global state.
//
// Concrete commands embed Base, which carries the name, alias, parameter bag,
// diagnostics and lifecycle state, and implement Check and Execute.
package command

import (
	"context"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
)

// State is a command's position in its lifecycle.
type State int

const (
	Unparsed State = iota
	Parsed
	Checked
	ExecutedDiscovery
	ExecutedRun
)

func (s State) String() string {
	switch s {
	case Parsed:
		return "PARSED"
	case Checked:
		return "CHECKED"
	case ExecutedDiscovery:
		return "EXECUTED_DISCOVERY"
	case ExecutedRun:
		return "EXECUTED_RUN"
	}
	return "UNPARSED"
}

// Command is implemented by every script command.
type Command interface {
	// Name is the canonical command name.
	Name() string
	// Alias is the output name declared with `Alias = Name(...)`, or "".
	Alias() string

	// Parse reads the full command text into the parameter bag.
	Parse(text string) error
	// Check validates params, recording INITIALIZATION diagnostics. It
	// returns *InvalidParameters when any FAILURE was recorded.
	Check(ctx context.Context, req request.Requester, params *props.Bag) error
	// Execute runs the command in phase. It returns nil, *Warning or
	// *Failure.
	Execute(ctx context.Context, phase diag.Phase, req request.Requester) error

	Parameters() *props.Bag
	Diagnostics() *diag.Diagnostics
	State() State
	SetState(State)

	// String renders the command back to script text.
	String() string
}

// SupportsDiscovery is implemented by commands that can run in the
// DISCOVERY phase without expensive I/O. Commands that do not implement it
// are checked but not executed during discovery.
type SupportsDiscovery interface {
	Command
	Discoverable()
}

// ProducesObjectList is implemented by commands that expose what they
// produced in their last execution, typically placeholder time series
// created during discovery.
type ProducesObjectList interface {
	Command
	ObjectList() []any
}
