package timeseries

import (
	"fmt"
	"path"
	"strings"
)

// Ident is a structured time series identifier of the form
//
//	Location.Source.DataType.Interval[-Qualifier][~InputType[~InputName]]
//
// InputType names where the series comes from (a datastore name, "CSV") and
// InputName is the connection or file within that origin.
type Ident struct {
	Location  string
	Source    string
	DataType  string
	Interval  string
	Qualifier string
	InputType string
	InputName string
}

// ParseIdent parses a TSID string. The four dot-separated parts are required;
// the interval part must be a valid interval.
func ParseIdent(s string) (Ident, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ident{}, fmt.Errorf("time series identifier cannot be empty")
	}

	var id Ident
	main, origin, hasOrigin := strings.Cut(s, "~")
	if hasOrigin {
		id.InputType, id.InputName, _ = strings.Cut(origin, "~")
		if id.InputType == "" {
			return Ident{}, fmt.Errorf("identifier %q has an empty input type after '~'", s)
		}
	}

	parts := strings.Split(main, ".")
	if len(parts) != 4 {
		return Ident{}, fmt.Errorf("identifier %q must have 4 parts Location.Source.DataType.Interval, found %d", s, len(parts))
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Ident{}, fmt.Errorf("identifier %q has an empty part at position %d", s, i+1)
		}
	}
	id.Location, id.Source, id.DataType = parts[0], parts[1], parts[2]
	id.Interval, id.Qualifier, _ = strings.Cut(parts[3], "-")

	if _, err := ParseInterval(id.Interval); err != nil {
		return Ident{}, fmt.Errorf("identifier %q: %w", s, err)
	}
	return id, nil
}

// MustParseIdent is ParseIdent that panics on error. Intended for tests and
// constant identifiers.
func MustParseIdent(s string) Ident {
	id, err := ParseIdent(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Key returns the identifier without the origin suffix.
func (id Ident) Key() string {
	iv := id.Interval
	if id.Qualifier != "" {
		iv += "-" + id.Qualifier
	}
	return strings.Join([]string{id.Location, id.Source, id.DataType, iv}, ".")
}

// String returns the full identifier including the origin suffix.
func (id Ident) String() string {
	s := id.Key()
	if id.InputType != "" {
		s += "~" + id.InputType
		if id.InputName != "" {
			s += "~" + id.InputName
		}
	}
	return s
}

// ParsedInterval returns the interval of the identifier.
func (id Ident) ParsedInterval() Interval {
	iv, _ := ParseInterval(id.Interval)
	return iv
}

// MatchPattern reports whether value matches a glob pattern, ignoring case.
// A pattern of "*" matches everything.
func MatchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(value))
	return err == nil && ok
}
