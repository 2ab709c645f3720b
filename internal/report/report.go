// Package report renders run results as YAML, one document per script.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"gopkg.in/yaml.v3"
)

// Report is the YAML document written for one script run.
type Report struct {
	Script       string                    `yaml:"script"`
	RunID        string                    `yaml:"run_id"`
	Phase        diag.Phase                `yaml:"phase"`
	Success      bool                      `yaml:"success"`
	Canceled     bool                      `yaml:"canceled,omitempty"`
	Severity     diag.Severity             `yaml:"severity"`
	FirstFailure *int                      `yaml:"first_failure,omitempty"`
	Duration     string                    `yaml:"duration"`
	Commands     []processor.CommandResult `yaml:"commands"`
}

// New builds the report of a run of script.
func New(script string, r *processor.RunResult) *Report {
	rep := &Report{
		Script:   script,
		RunID:    r.RunID,
		Phase:    r.Phase,
		Success:  r.Success(),
		Canceled: r.Canceled,
		Severity: r.Max(),
		Duration: r.Finished.Sub(r.Started).String(),
		Commands: r.Commands,
	}
	if i := r.FirstFailure(); i >= 0 {
		rep.FirstFailure = &i
	}
	return rep
}

// Write encodes reports to w as a YAML stream.
func Write(w io.Writer, reports ...*Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, rep := range reports {
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encoding report for %s: %w", rep.Script, err)
		}
	}
	return enc.Close()
}

// WriteFile writes reports to path, replacing the file.
func WriteFile(path string, reports ...*Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := Write(f, reports...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a YAML stream written by Write.
func Read(r io.Reader) ([]*Report, error) {
	dec := yaml.NewDecoder(r)
	var out []*Report
	for {
		var rep Report
		if err := dec.Decode(&rep); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, fmt.Errorf("decoding report: %w", err)
		}
		out = append(out, &rep)
	}
}
