// Package processor owns an ordered list of commands and the global state
// they share, and runs them in the DISCOVERY or RUN phase.
//
// Commands never see the processor directly. They receive it as a
// request.Requester and talk to it through named requests, the built-in
// handlers of which live in requests.go.
package processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/tsflow/internal/command"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/progress"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Options configures a new Processor.
type Options struct {
	// Properties seed the global state. They survive resets.
	Properties *props.Bag
	Listeners  []progress.Listener
}

// Processor runs commands against a GlobalState.
type Processor struct {
	mu       sync.Mutex
	commands []command.Command

	state *GlobalState
	// active is the state requests resolve against: state during a run,
	// a scratch copy during discovery.
	active atomic.Pointer[GlobalState]

	dispatcher *request.Dispatcher
	listeners  progress.Multi
	canceled   atomic.Bool
	status     atomic.Pointer[Status]
}

// Status is a point-in-time view of the processor, safe to read from other
// goroutines while a run is in progress.
type Status struct {
	Running bool   `json:"running"`
	RunID   string `json:"run_id,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
}

// New creates a processor with no commands.
func New(opts Options) *Processor {
	initial := opts.Properties
	if initial == nil {
		initial = props.New()
	}
	p := &Processor{
		state:      NewGlobalState(initial),
		dispatcher: request.NewDispatcher(),
		listeners:  append(progress.Multi(nil), opts.Listeners...),
	}
	p.active.Store(p.state)
	p.status.Store(&Status{})
	p.registerRequests()
	return p
}

// AddListener subscribes l to progress notifications.
func (p *Processor) AddListener(l progress.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// SetCommands replaces the command list.
func (p *Processor) SetCommands(cmds []command.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append([]command.Command(nil), cmds...)
}

// Add appends a command.
func (p *Processor) Add(cmd command.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, cmd)
}

// Insert places cmd at index i, shifting later commands down.
func (p *Processor) Insert(i int, cmd command.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i > len(p.commands) {
		return fmt.Errorf("insert index %d is out of range [0,%d]", i, len(p.commands))
	}
	p.commands = append(p.commands, nil)
	copy(p.commands[i+1:], p.commands[i:])
	p.commands[i] = cmd
	return nil
}

// Remove deletes the command at index i.
func (p *Processor) Remove(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.commands) {
		return fmt.Errorf("remove index %d is out of range [0,%d)", i, len(p.commands))
	}
	p.commands = append(p.commands[:i], p.commands[i+1:]...)
	return nil
}

// Commands returns a copy of the command list.
func (p *Processor) Commands() []command.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]command.Command(nil), p.commands...)
}

// Len returns the number of commands, comments included.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.commands)
}

// State returns the run state. It is the state commands saw in the last
// RUN; discovery never touches it.
func (p *Processor) State() *GlobalState { return p.state }

// Status returns the current run status.
func (p *Processor) Status() Status { return *p.status.Load() }

// Cancel asks the running loop to stop before the next command. A command
// already executing is allowed to finish. Made between runs, the request
// stops the next run before its first command.
func (p *Processor) Cancel() { p.canceled.Store(true) }

// Canceled reports whether a cancellation request is pending.
func (p *Processor) Canceled() bool { return p.canceled.Load() }

// ProcessRequest implements request.Requester.
func (p *Processor) ProcessRequest(ctx context.Context, name string, params *props.Bag) (*props.Bag, error) {
	return p.dispatcher.Dispatch(ctx, name, params)
}

// PropContents implements request.Requester.
func (p *Processor) PropContents(key string) (props.Value, error) {
	return p.active.Load().Get(key), nil
}

// SetPropContents implements request.Requester.
func (p *Processor) SetPropContents(key string, value props.Value) error {
	return p.active.Load().Set(key, value, props.HowSetRuntime)
}

// Requests returns the names of the built-in requests.
func (p *Processor) Requests() []string { return p.dispatcher.Names() }

// DiscoveredObjects collects the object lists of commands before upTo that
// expose one, typically placeholder time series created during discovery.
func (p *Processor) DiscoveredObjects(upTo int) []any {
	cmds := p.Commands()
	if upTo > len(cmds) || upTo < 0 {
		upTo = len(cmds)
	}
	var out []any
	for _, cmd := range cmds[:upTo] {
		if pl, ok := cmd.(command.ProducesObjectList); ok {
			out = append(out, pl.ObjectList()...)
		}
	}
	return out
}

// Close releases open datastores.
func (p *Processor) Close() error {
	return p.state.Close()
}

var _ request.Requester = (*Processor)(nil)
