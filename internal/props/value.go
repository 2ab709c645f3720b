package props

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/timeseries"
)

// Kind identifies the concrete type held by a Value.
type Kind int

// Property kinds.
const (
	Absent         Kind = iota // no value set
	String                     // text
	Integer                    // int64
	Double                     // float64
	Boolean                    // bool
	DateTime                   // time.Time
	TimeSeriesList             // []*timeseries.TimeSeries
	Object                     // any other handle, such as a datastore
)

var kindNames = [...]string{
	Absent:         "absent",
	String:         "string",
	Integer:        "integer",
	Double:         "double",
	Boolean:        "boolean",
	DateTime:       "date-time",
	TimeSeriesList: "time series list",
	Object:         "object",
}

// String returns the lower-case name used in messages.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// DateTimeLayout is the layout used to render date-time values as text.
const DateTimeLayout = "2006-01-02 15:04:05"

// Value is a closed union over the kinds of data a property can hold. The
// zero Value is absent.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
	ts   []*timeseries.TimeSeries
	obj  any
}

// TypeError is returned when a Value is read as a kind it does not hold.
type TypeError struct {
	Want Kind
	Got  Kind
}

// Error implements error.
func (e *TypeError) Error() string {
	return fmt.Sprintf("value is %s, not %s", e.Got, e.Want)
}

// StringValue returns a String value.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// IntValue returns an Integer value.
func IntValue(i int64) Value { return Value{kind: Integer, i: i} }

// FloatValue returns a Double value.
func FloatValue(f float64) Value { return Value{kind: Double, f: f} }

// BoolValue returns a Boolean value.
func BoolValue(b bool) Value { return Value{kind: Boolean, b: b} }

// TimeValue returns a DateTime value.
func TimeValue(t time.Time) Value { return Value{kind: DateTime, t: t} }

// ObjectValue returns an Object value holding obj. Use ObjectAs to read it
// back as its concrete type.
func ObjectValue(obj any) Value { return Value{kind: Object, obj: obj} }

// TimeSeriesValue wraps a list of series. The slice is copied; the series
// handles are shared.
func TimeSeriesValue(list []*timeseries.TimeSeries) Value {
	return Value{kind: TimeSeriesList, ts: append([]*timeseries.TimeSeries(nil), list...)}
}

// Kind returns the kind held.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether no value is held.
func (v Value) IsAbsent() bool { return v.kind == Absent }

// AsString returns the text of a String value. Other kinds return a
// *TypeError; use String to render any kind as text.
func (v Value) AsString() (string, error) {
	if v.kind != String {
		return "", &TypeError{Want: String, Got: v.kind}
	}
	return v.s, nil
}

// AsInt returns the contents of an Integer value, or a *TypeError.
func (v Value) AsInt() (int64, error) {
	if v.kind != Integer {
		return 0, &TypeError{Want: Integer, Got: v.kind}
	}
	return v.i, nil
}

// AsFloat returns the contents of a Double value, or a *TypeError. Integers
// are not converted.
func (v Value) AsFloat() (float64, error) {
	if v.kind != Double {
		return 0, &TypeError{Want: Double, Got: v.kind}
	}
	return v.f, nil
}

// AsBool returns the contents of a Boolean value, or a *TypeError.
func (v Value) AsBool() (bool, error) {
	if v.kind != Boolean {
		return false, &TypeError{Want: Boolean, Got: v.kind}
	}
	return v.b, nil
}

// AsTime returns the contents of a DateTime value, or a *TypeError.
func (v Value) AsTime() (time.Time, error) {
	if v.kind != DateTime {
		return time.Time{}, &TypeError{Want: DateTime, Got: v.kind}
	}
	return v.t, nil
}

// AsTimeSeriesList returns a copy of the list held by a TimeSeriesList
// value, or a *TypeError. The series themselves are shared.
func (v Value) AsTimeSeriesList() ([]*timeseries.TimeSeries, error) {
	if v.kind != TimeSeriesList {
		return nil, &TypeError{Want: TimeSeriesList, Got: v.kind}
	}
	return append([]*timeseries.TimeSeries(nil), v.ts...), nil
}

// AsObject returns the handle held by an Object value, or a *TypeError.
func (v Value) AsObject() (any, error) {
	if v.kind != Object {
		return nil, &TypeError{Want: Object, Got: v.kind}
	}
	return v.obj, nil
}

// ObjectAs reads an Object value holding a T.
func ObjectAs[T any](v Value) (T, error) {
	var zero T
	obj, err := v.AsObject()
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("object is %T, not %T", obj, zero)
	}
	return t, nil
}

// String renders the value as text. Absent renders as "".
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.b)
	case DateTime:
		return v.t.Format(DateTimeLayout)
	case TimeSeriesList:
		labels := make([]string, len(v.ts))
		for i, ts := range v.ts {
			labels[i] = ts.Label()
		}
		return "[" + strings.Join(labels, ",") + "]"
	case Object:
		return fmt.Sprintf("%v", v.obj)
	}
	return ""
}

// Equal compares kinds and contents. Objects and series are compared by
// identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Absent:
		return true
	case String:
		return v.s == o.s
	case Integer:
		return v.i == o.i
	case Double:
		return v.f == o.f
	case Boolean:
		return v.b == o.b
	case DateTime:
		return v.t.Equal(o.t)
	case TimeSeriesList:
		if len(v.ts) != len(o.ts) {
			return false
		}
		for i := range v.ts {
			if v.ts[i] != o.ts[i] {
				return false
			}
		}
		return true
	case Object:
		if v.obj == nil || o.obj == nil {
			return v.obj == o.obj
		}
		if reflect.TypeOf(v.obj) != reflect.TypeOf(o.obj) || !reflect.TypeOf(v.obj).Comparable() {
			return false
		}
		return v.obj == o.obj
	}
	return false
}
