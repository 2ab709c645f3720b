// Package script turns script text into commands. Every line yields exactly
// one entry so that command positions match line positions: commands, kept
// comments, and Invalid placeholders for lines that could not be parsed.
package script

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/registry"
)

// Extension is the conventional file extension of script files.
const Extension = ".tsflow"

// Parse reads every line of r. Problems with individual lines never fail the
// whole script; only read errors are returned.
func Parse(ctx context.Context, r io.Reader, reg *registry.Registry) ([]command.Command, error) {
	logger := ctxlog.FromContext(ctx)
	var cmds []command.Command
	inBlock := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		text := sc.Text()
		trimmed := strings.TrimSpace(text)

		switch {
		case inBlock:
			cmds = append(cmds, command.NewComment(text))
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		case strings.HasPrefix(trimmed, "/*"):
			cmds = append(cmds, command.NewComment(text))
			inBlock = !strings.Contains(trimmed[2:], "*/")
			continue
		case command.IsComment(text):
			cmds = append(cmds, command.NewComment(text))
			continue
		}

		cmd := ParseLine(ctx, text, reg)
		if inv, ok := cmd.(*command.Invalid); ok {
			logger.Warn("Script line could not be parsed.", "line", lineNo, "error", inv.Err)
		}
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	logger.Debug("Script parsed.", "lines", len(cmds))
	return cmds, nil
}

// ParseLine builds one command from a line of text. The result is an
// *command.Invalid when the line is malformed or names an unknown command.
func ParseLine(ctx context.Context, text string, reg *registry.Registry) command.Command {
	if command.IsComment(text) {
		return command.NewComment(text)
	}

	line, err := command.SplitLine(text)
	if err != nil {
		return command.NewInvalid(guessName(text), text, err)
	}

	factory, canonical, deprecated, ok := reg.Lookup(line.Name)
	if !ok {
		return command.NewInvalid(line.Name, text, fmt.Errorf("unknown command '%s'", line.Name))
	}
	if deprecated {
		ctxlog.FromContext(ctx).Warn("Deprecated command name, use the current name instead.", "name", line.Name, "current", canonical)
	}

	cmd := factory()
	if err := cmd.Parse(text); err != nil {
		return command.NewInvalid(canonical, text, err)
	}
	return cmd
}

// LoadFile parses the script at path.
func LoadFile(ctx context.Context, path string, reg *registry.Registry) ([]command.Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, reg)
}

func guessName(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	if _, after, found := strings.Cut(s, "="); found {
		s = after
	}
	return strings.TrimSpace(s)
}
