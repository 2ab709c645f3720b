// Package timeseries holds the regular-interval time series model shared by
// the processor and the commands: identifiers, intervals, values and the
// small set of algorithms (fill, file codec) the reference commands need.
package timeseries

import (
	"fmt"
	"math"
	"time"
)

// TimeSeries is a regular-interval series. Missing values are NaN.
//
// A placeholder series carries only identifying metadata. It is produced
// during discovery so that later commands can see what will exist after a
// full run without any data having been read.
type TimeSeries struct {
	Ident       Ident
	Alias       string
	Description string
	Units       string

	interval    Interval
	start       time.Time
	values      []float64
	placeholder bool
}

// New allocates a series covering [start, end] with every value missing.
func New(id Ident, start, end time.Time) (*TimeSeries, error) {
	iv, err := ParseInterval(id.Interval)
	if err != nil {
		return nil, err
	}
	start, end = iv.Truncate(start), iv.Truncate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("period end %s is before start %s", iv.Format(end), iv.Format(start))
	}

	n := iv.Steps(start, end) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return &TimeSeries{Ident: id, interval: iv, start: start, values: values}, nil
}

// NewPlaceholder creates a metadata-only series.
func NewPlaceholder(id Ident) *TimeSeries {
	return &TimeSeries{Ident: id, interval: id.ParsedInterval(), placeholder: true}
}

// IsPlaceholder reports whether the series carries metadata only.
func (ts *TimeSeries) IsPlaceholder() bool { return ts.placeholder }

// Interval returns the data interval.
func (ts *TimeSeries) Interval() Interval { return ts.interval }

// Len returns the number of values in the period.
func (ts *TimeSeries) Len() int { return len(ts.values) }

// Start returns the first date of the period.
func (ts *TimeSeries) Start() time.Time { return ts.start }

// End returns the last date of the period. Zero for empty series.
func (ts *TimeSeries) End() time.Time {
	if len(ts.values) == 0 {
		return time.Time{}
	}
	return ts.DateAt(len(ts.values) - 1)
}

// DateAt returns the date of the i-th value.
func (ts *TimeSeries) DateAt(i int) time.Time {
	return ts.interval.Add(ts.start, i)
}

// Index returns the position of date t, or -1 when t is outside the period.
func (ts *TimeSeries) Index(t time.Time) int {
	if len(ts.values) == 0 {
		return -1
	}
	t = ts.interval.Truncate(t)
	if t.Before(ts.start) {
		return -1
	}
	i := ts.interval.Steps(ts.start, t)
	if i >= len(ts.values) || !ts.DateAt(i).Equal(t) {
		return -1
	}
	return i
}

// ValueAt returns the i-th value.
func (ts *TimeSeries) ValueAt(i int) float64 { return ts.values[i] }

// SetValueAt stores the i-th value.
func (ts *TimeSeries) SetValueAt(i int, v float64) { ts.values[i] = v }

// Value returns the value at date t. ok is false when t is outside the period.
func (ts *TimeSeries) Value(t time.Time) (v float64, ok bool) {
	i := ts.Index(t)
	if i < 0 {
		return math.NaN(), false
	}
	return ts.values[i], true
}

// SetValue stores v at date t.
func (ts *TimeSeries) SetValue(t time.Time, v float64) error {
	i := ts.Index(t)
	if i < 0 {
		return fmt.Errorf("date %s is outside the period of %s", ts.interval.Format(t), ts.Ident.Key())
	}
	ts.values[i] = v
	return nil
}

// IsMissing reports whether v is the missing value.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// MissingCount returns how many values are missing.
func (ts *TimeSeries) MissingCount() int {
	n := 0
	for _, v := range ts.values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (ts *TimeSeries) Clone() *TimeSeries {
	c := *ts
	c.values = append([]float64(nil), ts.values...)
	return &c
}

// Label returns the alias when set, otherwise the identifier key.
func (ts *TimeSeries) Label() string {
	if ts.Alias != "" {
		return ts.Alias
	}
	return ts.Ident.Key()
}

// Matches reports whether the series is selected by a TSID pattern. The alias
// is tried first, then the identifier key and the full identifier.
func (ts *TimeSeries) Matches(pattern string) bool {
	if ts.Alias != "" && MatchPattern(pattern, ts.Alias) {
		return true
	}
	return MatchPattern(pattern, ts.Ident.Key()) || MatchPattern(pattern, ts.Ident.String())
}
