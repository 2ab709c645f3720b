// Package diag provides the severity-ranked, phase-scoped diagnostics that
// every command accumulates while it is checked and executed.
package diag

import (
	"fmt"
	"strings"
)

// Severity is totally ordered: Unknown < Success < Info < Warning < Failure.
type Severity int

const (
	Unknown Severity = iota
	Success
	Info
	Warning
	Failure
)

var severityNames = [...]string{"UNKNOWN", "SUCCESS", "INFO", "WARNING", "FAILURE"}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// ParseSeverity parses a severity name, ignoring case.
func ParseSeverity(s string) (Severity, error) {
	for i, name := range severityNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Severity(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown severity %q", s)
}

// MarshalText renders the severity name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Phase is a stage of a command's life in which diagnostics are collected.
type Phase int

const (
	Initialization Phase = iota
	Discovery
	Run
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{Initialization, Discovery, Run}

var phaseNames = [...]string{"INITIALIZATION", "DISCOVERY", "RUN"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

// ParsePhase parses a phase name, ignoring case.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Phase(i), nil
		}
	}
	return Initialization, fmt.Errorf("unknown phase %q", s)
}

// MarshalText renders the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// LogRecord is a single diagnostic message.
type LogRecord struct {
	Severity       Severity `yaml:"severity" json:"severity"`
	Message        string   `yaml:"message" json:"message"`
	Recommendation string   `yaml:"recommendation,omitempty" json:"recommendation,omitempty"`
}

func (r LogRecord) String() string {
	if r.Recommendation == "" {
		return fmt.Sprintf("%s: %s", r.Severity, r.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Severity, r.Message, r.Recommendation)
}
