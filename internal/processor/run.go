package processor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/progress"
)

// RunOptions selects the commands to run and the phase to run them in.
// To is exclusive; zero means the end of the list.
type RunOptions struct {
	From  int
	To    int
	Phase diag.Phase
}

// PhaseResult is the outcome of one phase of one command.
type PhaseResult struct {
	Phase    diag.Phase       `yaml:"phase"`
	Severity diag.Severity    `yaml:"severity"`
	Records  []diag.LogRecord `yaml:"records,omitempty"`
}

// CommandResult is the outcome of one command in a run.
type CommandResult struct {
	Index    int           `yaml:"index"`
	Name     string        `yaml:"name"`
	Text     string        `yaml:"text"`
	Executed bool          `yaml:"executed"`
	State    string        `yaml:"state"`
	Phases   []PhaseResult `yaml:"phases"`
}

// Severity returns the aggregate severity of phase, Unknown when the phase
// never ran.
func (r CommandResult) Severity(phase diag.Phase) diag.Severity {
	for _, pr := range r.Phases {
		if pr.Phase == phase {
			return pr.Severity
		}
	}
	return diag.Unknown
}

// RunResult is the outcome of Processor.Run.
type RunResult struct {
	RunID    string          `yaml:"run_id"`
	Phase    diag.Phase      `yaml:"phase"`
	Started  time.Time       `yaml:"started"`
	Finished time.Time       `yaml:"finished"`
	Canceled bool            `yaml:"canceled"`
	Commands []CommandResult `yaml:"commands"`
}

// Success reports whether no command failed its checks and no executed
// command failed in the run phase.
func (r *RunResult) Success() bool {
	for _, c := range r.Commands {
		if c.Severity(diag.Initialization) == diag.Failure {
			return false
		}
		if c.Executed && c.Severity(r.Phase) == diag.Failure {
			return false
		}
	}
	return true
}

// FirstFailure returns the index of the first command with a FAILURE in any
// phase, or -1.
func (r *RunResult) FirstFailure() int {
	for _, c := range r.Commands {
		for _, pr := range c.Phases {
			if pr.Severity == diag.Failure {
				return c.Index
			}
		}
	}
	return -1
}

// Max returns the highest severity seen in the run.
func (r *RunResult) Max() diag.Severity {
	highest := diag.Unknown
	for _, c := range r.Commands {
		for _, pr := range c.Phases {
			highest = max(highest, pr.Severity)
		}
	}
	return highest
}

// Run executes commands From..To in opts.Phase. Problems with individual
// commands are recorded in their diagnostics and never stop the loop; Run
// returns an error only for an invalid range or a done context.
func (p *Processor) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Phase != diag.Discovery && opts.Phase != diag.Run {
		return nil, fmt.Errorf("cannot run in phase %s", opts.Phase)
	}

	p.mu.Lock()
	cmds := append([]command.Command(nil), p.commands...)
	listeners := append(progress.Multi(nil), p.listeners...)
	p.mu.Unlock()

	to := opts.To
	if to == 0 {
		to = len(cmds)
	}
	if opts.From < 0 || to > len(cmds) || opts.From > to {
		return nil, fmt.Errorf("invalid command range [%d,%d) for %d commands", opts.From, to, len(cmds))
	}

	result := &RunResult{RunID: uuid.NewString(), Phase: opts.Phase, Started: time.Now()}
	ctx = ctxlog.With(ctx, "run", result.RunID, "phase", opts.Phase.String())

	switch {
	case opts.Phase == diag.Discovery:
		p.active.Store(p.state.Scratch())
		defer p.active.Store(p.state)
	case opts.From == 0:
		p.state.Reset()
	}

	total := to - opts.From
	p.status.Store(&Status{Running: true, RunID: result.RunID, Phase: opts.Phase.String(), Total: total})
	defer p.status.Store(&Status{RunID: result.RunID, Phase: opts.Phase.String(), Current: total, Total: total})

	listeners.RunStarted(ctx, progress.Event{RunID: result.RunID, Phase: opts.Phase, Index: -1, Total: total, Time: result.Started})

	var runErr error
	for i := opts.From; i < to; i++ {
		if p.canceled.Load() {
			result.Canceled = true
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		cmd := cmds[i]
		if _, ok := cmd.(*command.Comment); ok {
			continue
		}

		p.status.Store(&Status{Running: true, RunID: result.RunID, Phase: opts.Phase.String(), Current: i - opts.From, Total: total})
		ev := progress.Event{RunID: result.RunID, Phase: opts.Phase, Index: i, Total: total, Command: cmd.Name(), Time: time.Now()}
		listeners.CommandStarted(ctx, ev)

		cr := p.runCommand(ctxlog.With(ctx, "index", i, "command", cmd.Name()), i, cmd, opts.Phase)
		result.Commands = append(result.Commands, cr)

		ev.Severity = cmd.Diagnostics().Max()
		ev.Time = time.Now()
		listeners.CommandCompleted(ctx, ev)
	}
	// A request is consumed by the run that sees it, even one made after the
	// last command.
	if p.canceled.Swap(false) {
		result.Canceled = true
	}
	result.Finished = time.Now()

	listeners.RunFinished(ctx, progress.Event{
		RunID:    result.RunID,
		Phase:    opts.Phase,
		Index:    -1,
		Total:    total,
		Severity: result.Max(),
		Canceled: result.Canceled,
		Time:     result.Finished,
	})
	return result, runErr
}

func (p *Processor) runCommand(ctx context.Context, index int, cmd command.Command, phase diag.Phase) (cr CommandResult) {
	logger := ctxlog.FromContext(ctx)
	d := cmd.Diagnostics()
	cr = CommandResult{Index: index, Name: cmd.Name(), Text: cmd.String()}
	defer func() {
		cr.State = cmd.State().String()
		cr.Phases = phaseResults(d)
	}()

	// Records of an earlier run of this phase must not survive a skip.
	d.Reset(phase)

	if cmd.State() == command.Unparsed {
		logger.Warn("Skipping command that could not be parsed.")
		return cr
	}

	err := safeCall(ctx, func() error { return cmd.Check(ctx, p, cmd.Parameters()) })
	var invalid *command.InvalidParameters
	if err != nil && !errors.As(err, &invalid) && d.Highest(diag.Initialization) < diag.Failure {
		d.Add(diag.Initialization, diag.Failure, err.Error(), "Check the command parameters.")
	}
	d.Refresh()
	if d.Severity(diag.Initialization) == diag.Failure {
		logger.Warn("Skipping command with invalid parameters.", "messages", d.Messages(diag.Initialization, diag.Failure))
		return cr
	}
	cmd.SetState(command.Checked)

	if phase == diag.Discovery {
		if _, ok := cmd.(command.SupportsDiscovery); !ok {
			return cr
		}
	}

	err = safeCall(ctx, func() error { return cmd.Execute(ctx, phase, p) })
	p.recordOutcome(d, phase, err)
	if err := p.active.Load().check(); err != nil {
		d.Add(phase, diag.Failure, err.Error(), "This is a software problem. Report it to the developers.")
	}
	d.Refresh()
	cr.Executed = true

	if phase == diag.Discovery {
		cmd.SetState(command.ExecutedDiscovery)
	} else {
		cmd.SetState(command.ExecutedRun)
	}
	return cr
}

// recordOutcome makes sure the diagnostics reflect what Execute returned,
// whatever kind of error it was.
func (p *Processor) recordOutcome(d *diag.Diagnostics, phase diag.Phase, err error) {
	if err == nil {
		return
	}
	var failure *command.Failure
	var warning *command.Warning
	switch {
	case errors.As(err, &failure):
		if d.Highest(phase) < diag.Failure {
			d.Add(phase, diag.Failure, err.Error(), "Check the log file for details.")
		}
	case errors.As(err, &warning):
		if d.Highest(phase) < diag.Warning {
			d.Add(phase, diag.Warning, err.Error(), "Check the log file for details.")
		}
	default:
		d.Add(phase, diag.Failure, fmt.Sprintf("Unexpected error: %v", err), "See the log file for details.")
	}
}

// safeCall runs fn and turns a panic into an error.
func safeCall(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Command panicked.", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func phaseResults(d *diag.Diagnostics) []PhaseResult {
	var out []PhaseResult
	for _, ph := range diag.Phases {
		if !d.Ran(ph) {
			continue
		}
		out = append(out, PhaseResult{Phase: ph, Severity: d.Severity(ph), Records: d.Records(ph)})
	}
	return out
}
