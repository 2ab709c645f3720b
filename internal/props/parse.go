package props

import (
	"fmt"
	"strings"
)

// DefaultDelimiter separates parameters in command text.
const DefaultDelimiter = ','

// SyntaxError reports malformed property text.
type SyntaxError struct {
	Text   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("property syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Parse reads `Key=Value` tokens separated by delim. Values may be quoted
// with double quotes, in which case they may contain the delimiter, '=' and
// parentheses; `\"` and `\\` are the only escapes. Every parsed value is a
// string marked HowSetFromPersistent. A key repeated later in the text
// overwrites the earlier value but keeps the earlier position.
func Parse(text string, delim rune) (*Bag, error) {
	bag := New()
	p := &parser{src: []rune(text), text: text, delim: delim}
	p.skipSpace()
	if p.eof() {
		return bag, nil
	}

	for {
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		bag.SetString(key, value, HowSetFromPersistent)

		p.skipSpace()
		if p.eof() {
			return bag, nil
		}
		if p.peek() != delim {
			return nil, p.errorf("expected %q after value of %q", delim, key)
		}
		p.pos++
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("trailing %q without a parameter", delim)
		}
	}
}

type parser struct {
	src   []rune
	text  string
	pos   int
	delim rune
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() rune { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Text: p.text, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) key() (string, error) {
	start := p.pos
	for !p.eof() && p.peek() != '=' && p.peek() != p.delim {
		if p.peek() == '"' {
			return "", p.errorf("quote not allowed in parameter name")
		}
		p.pos++
	}
	if p.eof() || p.peek() == p.delim {
		return "", p.errorf("parameter %q is not in Key=Value form", strings.TrimSpace(string(p.src[start:p.pos])))
	}
	key := strings.TrimSpace(string(p.src[start:p.pos]))
	if key == "" {
		return "", p.errorf("empty parameter name")
	}
	p.pos++ // '='
	return key, nil
}

func (p *parser) value() (string, error) {
	p.skipSpace()
	if p.eof() {
		return "", nil
	}
	if p.peek() != '"' {
		start := p.pos
		for !p.eof() && p.peek() != p.delim {
			if p.peek() == '"' {
				return "", p.errorf("unexpected quote inside unquoted value")
			}
			p.pos++
		}
		return strings.TrimSpace(string(p.src[start:p.pos])), nil
	}

	open := p.pos
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		r := p.peek()
		switch {
		case r == '\\' && p.pos+1 < len(p.src) && (p.src[p.pos+1] == '"' || p.src[p.pos+1] == '\\'):
			sb.WriteRune(p.src[p.pos+1])
			p.pos += 2
		case r == '"':
			p.pos++
			p.skipSpace()
			if !p.eof() && p.peek() != p.delim {
				return "", p.errorf("unexpected text after closing quote")
			}
			return sb.String(), nil
		default:
			sb.WriteRune(r)
			p.pos++
		}
	}
	p.pos = open
	return "", p.errorf("unbalanced quote")
}

// Quote renders a value as a quoted, escaped string.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

// Serialize renders the bag as `Key="Value"` tokens joined by delim. Entries
// set at run time are omitted. An empty bag renders as "".
func (b *Bag) Serialize(delim rune) string {
	var sb strings.Builder
	for _, e := range b.Entries() {
		if e.HowSet == HowSetRuntime {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteRune(delim)
		}
		sb.WriteString(e.Key)
		sb.WriteByte('=')
		sb.WriteString(Quote(e.Value.String()))
	}
	return sb.String()
}

// String renders the bag with the default delimiter.
func (b *Bag) String() string {
	return b.Serialize(DefaultDelimiter)
}
