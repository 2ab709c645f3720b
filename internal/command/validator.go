package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Validator accumulates parameter violations into the INITIALIZATION phase.
// Every method records its problem and returns; nothing is reported to the
// caller until Finish.
type Validator struct {
	name   string
	d      *diag.Diagnostics
	params *props.Bag
}

// NewValidator clears the INITIALIZATION diagnostics of d and prepares to
// check params for the named command.
func NewValidator(name string, d *diag.Diagnostics, params *props.Bag) *Validator {
	d.Clear(diag.Initialization)
	if params == nil {
		params = props.New()
	}
	return &Validator{name: name, d: d, params: params}
}

// Fail records a FAILURE.
func (v *Validator) Fail(message, recommendation string) {
	v.d.Add(diag.Initialization, diag.Failure, message, recommendation)
}

// Warn records an advisory WARNING.
func (v *Validator) Warn(message, recommendation string) {
	v.d.Add(diag.Initialization, diag.Warning, message, recommendation)
}

// Failed reports whether a FAILURE has been recorded so far.
func (v *Validator) Failed() bool {
	return v.d.Highest(diag.Initialization) >= diag.Failure
}

// Text returns the trimmed text of a parameter, "" when absent.
func (v *Validator) Text(name string) string {
	return strings.TrimSpace(v.params.Text(name))
}

// Allowed records a FAILURE for every parameter not in names.
func (v *Validator) Allowed(names ...string) {
	for _, key := range v.params.Keys() {
		known := false
		for _, n := range names {
			if strings.EqualFold(n, key) {
				known = true
				break
			}
		}
		if !known {
			v.Fail(fmt.Sprintf("Unknown parameter %q.", key),
				fmt.Sprintf("Remove the parameter. Valid parameters are: %s.", strings.Join(names, ", ")))
		}
	}
}

// Required records a FAILURE when the parameter is absent or empty. It
// returns the parameter text.
func (v *Validator) Required(name string) string {
	s := v.Text(name)
	if s == "" {
		v.Fail(fmt.Sprintf("The %s parameter must be specified.", name), fmt.Sprintf("Specify the %s parameter.", name))
	}
	return s
}

// Float validates a number. ok is false when the parameter is absent or
// invalid.
func (v *Validator) Float(name string, required bool) (f float64, ok bool) {
	s := v.text(name, required)
	if s == "" || hasProperty(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v.Fail(fmt.Sprintf("The %s value %q is not a number.", name, s), fmt.Sprintf("Specify %s as a number.", name))
		return 0, false
	}
	return f, true
}

// Int validates an integer not lower than floor.
func (v *Validator) Int(name string, required bool, floor int) (i int, ok bool) {
	s := v.text(name, required)
	if s == "" || hasProperty(s) {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < floor {
		v.Fail(fmt.Sprintf("The %s value %q is not an integer >= %d.", name, s, floor),
			fmt.Sprintf("Specify %s as an integer >= %d.", name, floor))
		return 0, false
	}
	return i, true
}

// Choice validates an enumerated value, ignoring case, and returns the
// canonical spelling. An absent optional parameter returns def.
func (v *Validator) Choice(name string, required bool, def string, choices ...string) string {
	s := v.text(name, required)
	if s == "" {
		return def
	}
	for _, c := range choices {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	v.Fail(fmt.Sprintf("The %s value %q is invalid.", name, s),
		fmt.Sprintf("Specify %s as one of: %s.", name, strings.Join(choices, ", ")))
	return def
}

// Flag validates a one-character flag.
func (v *Validator) Flag(name string, required bool) string {
	s := v.text(name, required)
	if s != "" && len([]rune(s)) != 1 {
		v.Fail(fmt.Sprintf("The %s value %q must be a single character.", name, s),
			fmt.Sprintf("Specify %s as one character.", name))
	}
	return s
}

// Exclusive records a FAILURE when both parameters are set.
func (v *Validator) Exclusive(a, b string) {
	if v.Text(a) != "" && v.Text(b) != "" {
		v.Fail(fmt.Sprintf("The %s and %s parameters cannot both be specified.", a, b),
			fmt.Sprintf("Specify only one of %s and %s.", a, b))
	}
}

// OneOf records a FAILURE unless exactly one of the parameters is set.
func (v *Validator) OneOf(a, b string) {
	if v.Text(a) == "" && v.Text(b) == "" {
		v.Fail(fmt.Sprintf("One of the %s or %s parameters must be specified.", a, b),
			fmt.Sprintf("Specify %s or %s.", a, b))
		return
	}
	v.Exclusive(a, b)
}

// DateTime validates a date/time through the processor's DateTime request.
// Values referring to ${Property} are left for run time, when the property
// will exist.
func (v *Validator) DateTime(ctx context.Context, req request.Requester, name string, required bool) (t time.Time, ok bool) {
	s := v.text(name, required)
	if s == "" || hasProperty(s) || req == nil {
		return time.Time{}, false
	}
	t, err := RequestDateTime(ctx, req, s)
	if err != nil {
		v.Fail(fmt.Sprintf("The %s value %q is not a valid date/time (%v).", name, s, err),
			fmt.Sprintf("Specify %s as YYYY-MM-DD, YYYY-MM, YYYY or a property reference.", name))
		return time.Time{}, false
	}
	return t, true
}

func (v *Validator) text(name string, required bool) string {
	if required {
		return v.Required(name)
	}
	return v.Text(name)
}

// Finish refreshes the diagnostics and returns *InvalidParameters when any
// FAILURE was recorded.
func (v *Validator) Finish() error {
	v.d.Refresh()
	if v.d.Severity(diag.Initialization) < diag.Failure {
		return nil
	}
	return &InvalidParameters{Command: v.name, Messages: v.d.Messages(diag.Initialization, diag.Failure)}
}

func hasProperty(s string) bool {
	return strings.Contains(s, "${")
}
