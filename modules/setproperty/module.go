// Package setproperty provides SetProperty, which stores a typed global
// property for later commands.
package setproperty

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/registry"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Property types accepted by PropertyType.
const (
	TypeString   = "String"
	TypeInteger  = "Integer"
	TypeDouble   = "Double"
	TypeBoolean  = "Boolean"
	TypeDateTime = "DateTime"
)

// Command is SetProperty(PropertyName, PropertyType, PropertyValue).
type Command struct {
	command.Base
}

// New returns an unparsed SetProperty command.
func New() command.Command {
	return &Command{Base: command.NewBase("SetProperty")}
}

// Discoverable marks SetProperty as safe to run in discovery, so that
// later commands see the property.
func (c *Command) Discoverable() {}

func (c *Command) Check(ctx context.Context, req request.Requester, params *props.Bag) error {
	v := command.NewValidator(c.Name(), c.Diagnostics(), params)
	v.Allowed("PropertyName", "PropertyType", "PropertyValue")
	v.Required("PropertyName")
	kind := v.Choice("PropertyType", false, TypeString, TypeString, TypeInteger, TypeDouble, TypeBoolean, TypeDateTime)

	switch kind {
	case TypeString:
	case TypeInteger:
		v.Int("PropertyValue", true, math.MinInt)
	case TypeDouble:
		v.Float("PropertyValue", true)
	case TypeBoolean:
		if s := v.Required("PropertyValue"); s != "" && !strings.Contains(s, "${") {
			if _, err := strconv.ParseBool(s); err != nil {
				v.Fail(fmt.Sprintf("The PropertyValue %q is not a boolean.", s), "Specify true or false.")
			}
		}
	case TypeDateTime:
		v.DateTime(ctx, req, "PropertyValue", true)
	}
	return v.Finish()
}

func (c *Command) Execute(ctx context.Context, phase diag.Phase, req request.Requester) error {
	d := c.Diagnostics()
	d.Clear(phase)
	params := c.Parameters()

	name := strings.TrimSpace(params.Text("PropertyName"))
	kind := params.Text("PropertyType")
	raw, err := command.Expand(ctx, req, params.Text("PropertyValue"))
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand PropertyValue: %v", err), "Check the property references.")
		return command.Outcome(c.Name(), phase, d)
	}

	value, err := convert(ctx, req, kind, raw)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot set property %s: %v", name, err), "Check the PropertyType and PropertyValue parameters.")
		return command.Outcome(c.Name(), phase, d)
	}

	command.Request(ctx, req, d, phase, "SetProperty", request.Params("PropertyName", name, "PropertyValue", value))
	return command.Outcome(c.Name(), phase, d)
}

func convert(ctx context.Context, req request.Requester, kind, raw string) (props.Value, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(kind, TypeInteger):
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return props.Value{}, fmt.Errorf("%q is not an integer", s)
		}
		return props.IntValue(i), nil
	case strings.EqualFold(kind, TypeDouble):
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return props.Value{}, fmt.Errorf("%q is not a number", s)
		}
		return props.FloatValue(f), nil
	case strings.EqualFold(kind, TypeBoolean):
		b, err := strconv.ParseBool(s)
		if err != nil {
			return props.Value{}, fmt.Errorf("%q is not a boolean", s)
		}
		return props.BoolValue(b), nil
	case strings.EqualFold(kind, TypeDateTime):
		t, err := command.RequestDateTime(ctx, req, s)
		if err != nil {
			return props.Value{}, err
		}
		return props.TimeValue(t), nil
	}
	return props.StringValue(raw), nil
}

// Register registers the command with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCommand("SetProperty", New)
	r.RegisterLegacyAlias("setProperty", "SetProperty")
}
