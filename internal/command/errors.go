package command

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/tsflow/internal/diag"
)

// SyntaxError means the command text could not be tokenized.
type SyntaxError struct {
	Text string
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("syntax error in %q: %s: %v", e.Text, e.Msg, e.Err)
	}
	return fmt.Sprintf("syntax error in %q: %s", e.Text, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// InvalidParameters is returned by Check after every violation has been
// recorded, when at least one of them is a FAILURE.
type InvalidParameters struct {
	Command  string
	Messages []string
}

func (e *InvalidParameters) Error() string {
	return fmt.Sprintf("invalid parameters for %s:\n- %s", e.Command, strings.Join(e.Messages, "\n- "))
}

// Warning means execution produced some but not all expected results.
// Processing continues with the next command.
type Warning struct {
	Command  string
	Phase    diag.Phase
	Messages []string
}

func (e *Warning) Error() string {
	return fmt.Sprintf("%s finished %s with %d warning(s): %s", e.Command, e.Phase, len(e.Messages), strings.Join(e.Messages, "; "))
}

// Failure means execution produced no usable result. Processing continues
// with the next command.
type Failure struct {
	Command  string
	Phase    diag.Phase
	Messages []string
}

func (e *Failure) Error() string {
	return fmt.Sprintf("%s failed in %s: %s", e.Command, e.Phase, strings.Join(e.Messages, "; "))
}

// Outcome turns the records accumulated in phase into the execution result:
// *Failure when any FAILURE was recorded, *Warning when any WARNING was, nil
// otherwise.
func Outcome(name string, phase diag.Phase, d *diag.Diagnostics) error {
	switch d.Highest(phase) {
	case diag.Failure:
		return &Failure{Command: name, Phase: phase, Messages: d.Messages(phase, diag.Failure)}
	case diag.Warning:
		return &Warning{Command: name, Phase: phase, Messages: d.Messages(phase, diag.Warning)}
	}
	return nil
}
