package expr

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

var functions = map[string]function.Function{
	"abs":        stdlib.AbsoluteFunc,
	"ceil":       stdlib.CeilFunc,
	"floor":      stdlib.FloorFunc,
	"max":        stdlib.MaxFunc,
	"min":        stdlib.MinFunc,
	"log":        stdlib.LogFunc,
	"pow":        stdlib.PowFunc,
	"signum":     stdlib.SignumFunc,
	"parseint":   stdlib.ParseIntFunc,
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"strlen":     stdlib.StrlenFunc,
	"substr":     stdlib.SubstrFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"replace":    stdlib.ReplaceFunc,
	"join":       stdlib.JoinFunc,
	"split":      stdlib.SplitFunc,
	"format":     stdlib.FormatFunc,
	"formatdate": stdlib.FormatDateFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"length":     stdlib.LengthFunc,
}

// FunctionNames returns the names of the functions expressions may call.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for n := range functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToCty converts a property value to a cty value. Date-times become
// RFC 3339 strings so that formatdate can read them; series lists become
// lists of labels.
func ToCty(v props.Value) (cty.Value, error) {
	switch v.Kind() {
	case props.String:
		s, _ := v.AsString()
		return cty.StringVal(s), nil
	case props.Integer:
		i, _ := v.AsInt()
		return cty.NumberIntVal(i), nil
	case props.Double:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return cty.NilVal, fmt.Errorf("value %v is not a finite number", f)
		}
		return cty.NumberFloatVal(f), nil
	case props.Boolean:
		b, _ := v.AsBool()
		return cty.BoolVal(b), nil
	case props.DateTime:
		t, _ := v.AsTime()
		return cty.StringVal(t.Format("2006-01-02T15:04:05Z07:00")), nil
	case props.TimeSeriesList:
		list, _ := v.AsTimeSeriesList()
		if len(list) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		labels := make([]cty.Value, len(list))
		for i, ts := range list {
			labels[i] = cty.StringVal(ts.Label())
		}
		return cty.ListVal(labels), nil
	}
	return cty.NilVal, fmt.Errorf("a %s value cannot be used in an expression", v.Kind())
}

// FromCty converts an expression result to a property value. Whole numbers
// become integers. Collections are stored as objects holding plain Go
// values.
func FromCty(val cty.Value) (props.Value, error) {
	if !val.IsKnown() || val.IsNull() {
		return props.Value{}, fmt.Errorf("expression has no value")
	}
	switch val.Type() {
	case cty.String:
		return props.StringValue(val.AsString()), nil
	case cty.Bool:
		return props.BoolValue(val.True()), nil
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return props.IntValue(i), nil
			}
		}
		f, _ := bf.Float64()
		return props.FloatValue(f), nil
	}
	obj, err := ctyValueToInterface(val)
	if err != nil {
		return props.Value{}, err
	}
	return props.ObjectValue(obj), nil
}

func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			iv, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = iv
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			iv, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}
