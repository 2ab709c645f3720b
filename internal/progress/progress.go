// Package progress reports the advance of a processor run to interested
// parties: the log, a socket.io server, or anything else implementing
// Listener.
package progress

import (
	"context"
	"time"

	"github.com/specialistvlad/tsflow/internal/ctxlog"
	"github.com/specialistvlad/tsflow/internal/diag"
)

// Event describes one step of a run. Index is -1 for run-level events.
type Event struct {
	RunID    string
	Phase    diag.Phase
	Index    int
	Total    int
	Command  string
	Severity diag.Severity
	Canceled bool
	Time     time.Time
}

// Listener receives run and command notifications. Implementations are
// called synchronously from the run loop and must not block for long.
type Listener interface {
	RunStarted(ctx context.Context, ev Event)
	CommandStarted(ctx context.Context, ev Event)
	CommandCompleted(ctx context.Context, ev Event)
	RunFinished(ctx context.Context, ev Event)
}

// Multi fans every notification out to each listener in order.
type Multi []Listener

func (m Multi) RunStarted(ctx context.Context, ev Event) {
	for _, l := range m {
		l.RunStarted(ctx, ev)
	}
}

func (m Multi) CommandStarted(ctx context.Context, ev Event) {
	for _, l := range m {
		l.CommandStarted(ctx, ev)
	}
}

func (m Multi) CommandCompleted(ctx context.Context, ev Event) {
	for _, l := range m {
		l.CommandCompleted(ctx, ev)
	}
}

func (m Multi) RunFinished(ctx context.Context, ev Event) {
	for _, l := range m {
		l.RunFinished(ctx, ev)
	}
}

// Log writes progress to the context logger.
type Log struct{}

func (Log) RunStarted(ctx context.Context, ev Event) {
	ctxlog.FromContext(ctx).Info("🚀 Starting run.", "run", ev.RunID, "phase", ev.Phase, "commands", ev.Total)
}

func (Log) CommandStarted(ctx context.Context, ev Event) {
	ctxlog.FromContext(ctx).Debug("▶️ Command started.", "index", ev.Index, "command", ev.Command)
}

func (Log) CommandCompleted(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	switch ev.Severity {
	case diag.Failure:
		logger.Error("❌ Command failed.", "index", ev.Index, "command", ev.Command)
	case diag.Warning:
		logger.Warn("⚠️ Command completed with warnings.", "index", ev.Index, "command", ev.Command)
	default:
		logger.Debug("✅ Command completed.", "index", ev.Index, "command", ev.Command, "severity", ev.Severity)
	}
}

func (Log) RunFinished(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	if ev.Canceled {
		logger.Warn("🛑 Run canceled.", "run", ev.RunID, "phase", ev.Phase)
		return
	}
	logger.Info("🏁 Run finished.", "run", ev.RunID, "phase", ev.Phase, "severity", ev.Severity)
}
