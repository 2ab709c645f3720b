package props_test

import (
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/timeseries"
	"github.com/stretchr/testify/require"
)

func TestBag_CaseInsensitiveKeys(t *testing.T) {
	b := props.New()
	b.SetString("InputFile", "a.csv", props.HowSetFromPersistent)
	b.SetString("inputfile", "b.csv", props.HowSetRuntime)

	require.Equal(t, 1, b.Len())
	require.Equal(t, []string{"InputFile"}, b.Keys(), "the first spelling is kept")
	require.Equal(t, "b.csv", b.Text("INPUTFILE"))

	e, ok := b.Entry("inputFile")
	require.True(t, ok)
	require.Equal(t, props.HowSetRuntime, e.HowSet)
}

func TestBag_OrderAndUnset(t *testing.T) {
	b := props.New()
	b.SetString("A", "1", props.HowSetUnknown)
	b.SetString("B", "2", props.HowSetUnknown)
	b.SetString("C", "3", props.HowSetUnknown)

	require.True(t, b.Unset("b"))
	require.False(t, b.Unset("b"))
	require.Equal(t, []string{"A", "C"}, b.Keys())
	require.Equal(t, "3", b.Text("c"))
	require.True(t, b.Value("B").IsAbsent())
}

func TestBag_CloneIsIndependent(t *testing.T) {
	b := props.New()
	b.SetString("A", "1", props.HowSetUnknown)
	c := b.Clone()
	c.SetString("A", "2", props.HowSetUnknown)
	c.SetString("B", "3", props.HowSetUnknown)

	require.Equal(t, "1", b.Text("A"))
	require.False(t, b.Has("B"))
	require.False(t, b.Equal(c))
}

func TestBag_NilIsEmpty(t *testing.T) {
	var b *props.Bag
	require.Zero(t, b.Len())
	require.False(t, b.Has("x"))
	require.Nil(t, b.Keys())
	require.Zero(t, b.Clone().Len())
}

func TestParse(t *testing.T) {
	b, err := props.Parse(`TSID="A.B.C.Day", InputFile = data/in.csv ,Note="say \"hi\", then (leave)"`, props.DefaultDelimiter)
	require.NoError(t, err)
	require.Equal(t, []string{"TSID", "InputFile", "Note"}, b.Keys())
	require.Equal(t, "A.B.C.Day", b.Text("tsid"))
	require.Equal(t, "data/in.csv", b.Text("InputFile"))
	require.Equal(t, `say "hi", then (leave)`, b.Text("Note"))

	e, _ := b.Entry("Note")
	require.Equal(t, props.HowSetFromPersistent, e.HowSet)
}

func TestParse_Empty(t *testing.T) {
	b, err := props.Parse("   ", ',')
	require.NoError(t, err)
	require.Zero(t, b.Len())

	b, err = props.Parse("A=", ',')
	require.NoError(t, err)
	require.True(t, b.Has("A"))
	require.Equal(t, "", b.Text("A"))
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"no equals":        "A",
		"empty name":       "=1",
		"trailing comma":   "A=1,",
		"unbalanced quote": `A="open`,
		"text after quote": `A="x" y`,
		"stray quote":      `A=x"y`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := props.Parse(in, ',')
			var syn *props.SyntaxError
			require.True(t, errors.As(err, &syn), "expected a SyntaxError, got %v", err)
		})
	}
}

// Parsing a serialized bag yields an equal bag.
func TestSerialize_RoundTrip(t *testing.T) {
	inputs := []string{
		`A=1`,
		`TSID="X.Y.Z.Day",Note="a, b = (c)"`,
		`Path="C:\\data\\in.csv",Quote="\"q\""`,
		``,
	}
	for _, in := range inputs {
		b, err := props.Parse(in, ',')
		require.NoError(t, err)

		again, err := props.Parse(b.Serialize(','), ',')
		require.NoError(t, err)
		require.True(t, b.Equal(again), "round trip of %q produced %q", in, again.String())
	}
}

func TestSerialize_SkipsRuntime(t *testing.T) {
	b := props.New()
	b.SetString("Kept", "1", props.HowSetFromPersistent)
	b.SetString("Computed", "2", props.HowSetRuntime)
	require.Equal(t, `Kept="1"`, b.String())
}

func TestValue_Accessors(t *testing.T) {
	when := time.Date(2020, 5, 1, 6, 30, 0, 0, time.UTC)
	tests := []struct {
		v    props.Value
		kind props.Kind
		text string
	}{
		{props.StringValue("x"), props.String, "x"},
		{props.IntValue(-3), props.Integer, "-3"},
		{props.FloatValue(2.5), props.Double, "2.5"},
		{props.BoolValue(true), props.Boolean, "true"},
		{props.TimeValue(when), props.DateTime, "2020-05-01 06:30:00"},
		{props.Value{}, props.Absent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			require.Equal(t, tc.kind, tc.v.Kind())
			require.Equal(t, tc.text, tc.v.String())
			require.True(t, tc.v.Equal(tc.v))
		})
	}

	_, err := props.StringValue("x").AsInt()
	var te *props.TypeError
	require.ErrorAs(t, err, &te)
	require.Equal(t, props.Integer, te.Want)
	require.Equal(t, props.String, te.Got)
}

func TestValue_TimeSeriesListSharesHandles(t *testing.T) {
	ts := timeseries.NewPlaceholder(timeseries.MustParseIdent("A.B.C.Day"))
	list := []*timeseries.TimeSeries{ts}
	v := props.TimeSeriesValue(list)
	list[0] = nil

	got, err := v.AsTimeSeriesList()
	require.NoError(t, err)
	require.Same(t, ts, got[0])
	require.Equal(t, "[A.B.C.Day]", v.String())
}

func TestObjectAs(t *testing.T) {
	type handle struct{ name string }
	h := &handle{name: "db"}
	got, err := props.ObjectAs[*handle](props.ObjectValue(h))
	require.NoError(t, err)
	require.Same(t, h, got)

	_, err = props.ObjectAs[string](props.ObjectValue(h))
	require.Error(t, err)
	_, err = props.ObjectAs[*handle](props.StringValue("db"))
	require.Error(t, err)
}
