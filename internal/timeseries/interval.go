package timeseries

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Base is the base unit of a regular time series interval.
type Base int

const (
	Minute Base = iota + 1
	Hour
	Day
	Month
	Year
)

var baseNames = map[Base]string{
	Minute: "Minute",
	Hour:   "Hour",
	Day:    "Day",
	Month:  "Month",
	Year:   "Year",
}

func (b Base) String() string {
	if name, ok := baseNames[b]; ok {
		return name
	}
	return "Unknown"
}

// layout returns the date layout matching the precision of the base.
func (b Base) layout() string {
	switch b {
	case Minute:
		return "2006-01-02 15:04"
	case Hour:
		return "2006-01-02 15"
	case Month:
		return "2006-01"
	case Year:
		return "2006"
	default:
		return "2006-01-02"
	}
}

// Interval is a regular interval such as "Day" or "6Hour".
type Interval struct {
	Base Base
	Mult int
}

// ParseInterval parses an interval string with an optional multiplier prefix.
// Matching of the base name is case-insensitive.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Interval{}, fmt.Errorf("interval cannot be empty")
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	mult := 1
	if i > 0 {
		m, err := strconv.Atoi(s[:i])
		if err != nil || m <= 0 {
			return Interval{}, fmt.Errorf("invalid interval multiplier in %q", s)
		}
		mult = m
	}

	name := s[i:]
	for b, bn := range baseNames {
		if strings.EqualFold(bn, name) {
			return Interval{Base: b, Mult: mult}, nil
		}
	}
	return Interval{}, fmt.Errorf("unknown interval %q", s)
}

func (iv Interval) String() string {
	if iv.Mult <= 1 {
		return iv.Base.String()
	}
	return strconv.Itoa(iv.Mult) + iv.Base.String()
}

// IsZero reports whether the interval was never set.
func (iv Interval) IsZero() bool {
	return iv.Base == 0
}

// Add advances t by n intervals. n may be negative.
func (iv Interval) Add(t time.Time, n int) time.Time {
	step := n * max(iv.Mult, 1)
	switch iv.Base {
	case Minute:
		return t.Add(time.Duration(step) * time.Minute)
	case Hour:
		return t.Add(time.Duration(step) * time.Hour)
	case Day:
		return t.AddDate(0, 0, step)
	case Month:
		return t.AddDate(0, step, 0)
	case Year:
		return t.AddDate(step, 0, 0)
	}
	return t
}

// Steps returns the number of whole intervals from start to end.
func (iv Interval) Steps(start, end time.Time) int {
	mult := max(iv.Mult, 1)
	switch iv.Base {
	case Minute:
		return int(end.Sub(start)/time.Minute) / mult
	case Hour:
		return int(end.Sub(start)/time.Hour) / mult
	case Day:
		days := int(end.Sub(start).Round(time.Hour).Hours()) / 24
		return days / mult
	case Month:
		months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
		return months / mult
	case Year:
		return (end.Year() - start.Year()) / mult
	}
	return 0
}

// Truncate rounds t down to the precision of the interval base.
func (iv Interval) Truncate(t time.Time) time.Time {
	switch iv.Base {
	case Minute:
		return t.Truncate(time.Minute)
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	}
	return t
}

// Format renders t at the precision of the interval.
func (iv Interval) Format(t time.Time) string {
	return t.Format(iv.Base.layout())
}
