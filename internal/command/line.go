package command

import (
	"regexp"
	"strings"
)

// Line is a command line split into its parts.
type Line struct {
	Alias  string
	Name   string
	Params string
}

var (
	nameRegex  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	aliasRegex = regexp.MustCompile(`^[^\s"(),=]+$`)
)

// aliasKeyword may precede the alias, as in `TS Flow = ReadTimeSeries(...)`.
const aliasKeyword = "TS"

// SplitLine tokenizes `Name(params)` or `[TS ]Alias = Name(params)`. The
// parameter text is returned unparsed, with its parentheses and quotes
// verified to balance.
func SplitLine(text string) (Line, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Line{}, &SyntaxError{Text: text, Msg: "empty command"}
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return Line{}, &SyntaxError{Text: text, Msg: "missing '(' after command name"}
	}
	if !strings.HasSuffix(s, ")") {
		return Line{}, &SyntaxError{Text: text, Msg: "missing closing ')'"}
	}
	params := s[open+1 : len(s)-1]
	if msg := checkBalance(params); msg != "" {
		return Line{}, &SyntaxError{Text: text, Msg: msg}
	}

	var line Line
	head := s[:open]
	if aliasPart, name, found := strings.Cut(head, "="); found {
		fields := strings.Fields(aliasPart)
		if len(fields) > 0 && strings.EqualFold(fields[0], aliasKeyword) {
			fields = fields[1:]
		}
		switch {
		case len(fields) == 0:
			return Line{}, &SyntaxError{Text: text, Msg: "missing alias before '='"}
		case len(fields) > 1 || !aliasRegex.MatchString(fields[0]):
			return Line{}, &SyntaxError{Text: text, Msg: "invalid alias " + strings.TrimSpace(aliasPart)}
		}
		line.Alias = fields[0]
		head = name
	}

	line.Name = strings.TrimSpace(head)
	if !nameRegex.MatchString(line.Name) {
		return Line{}, &SyntaxError{Text: text, Msg: "invalid command name '" + line.Name + "'"}
	}
	line.Params = strings.TrimSpace(params)
	return line, nil
}

// checkBalance verifies parentheses and double quotes in parameter text. It
// returns a message describing the first problem, or "".
func checkBalance(s string) string {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			switch c {
			case '\\':
				i++
			case '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "unbalanced parentheses"
			}
		}
	}
	if inQuote {
		return "unbalanced quote"
	}
	if depth != 0 {
		return "unbalanced parentheses"
	}
	return ""
}

// Format renders a command line.
func Format(alias, name, params string) string {
	var sb strings.Builder
	if alias != "" {
		sb.WriteString(alias)
		sb.WriteString(" = ")
	}
	sb.WriteString(name)
	sb.WriteByte('(')
	sb.WriteString(params)
	sb.WriteByte(')')
	return sb.String()
}
