package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/tsflow/internal/command"
)

// Module is the interface that all command modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Factory builds a new, unparsed command.
type Factory func() command.Command

// Registry holds the command factories for a single application instance.
type Registry struct {
	factories map[string]Factory
	legacy    map[string]string
}

// New creates and initializes a new Registry instance, registering the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		legacy:    make(map[string]string),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterCommand registers a factory under its canonical command name.
func (r *Registry) RegisterCommand(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("command with name '%s' already registered", name))
	}
	if _, exists := r.legacy[name]; exists {
		panic(fmt.Sprintf("command name '%s' already registered as a legacy alias", name))
	}
	slog.Debug("Registering command.", "name", name)
	r.factories[name] = f
}

// RegisterLegacyAlias makes a deprecated spelling build the canonical command.
func (r *Registry) RegisterLegacyAlias(legacy, canonical string) {
	if _, ok := r.factories[canonical]; !ok {
		panic(fmt.Sprintf("legacy alias '%s' refers to unregistered command '%s'", legacy, canonical))
	}
	if _, exists := r.factories[legacy]; exists {
		panic(fmt.Sprintf("legacy alias '%s' collides with a registered command", legacy))
	}
	slog.Debug("Registering legacy command alias.", "legacy", legacy, "canonical", canonical)
	r.legacy[legacy] = canonical
}

// Lookup resolves a script name to its factory. deprecated is true when the
// name is a legacy alias.
func (r *Registry) Lookup(name string) (f Factory, canonical string, deprecated bool, ok bool) {
	if f, ok := r.factories[name]; ok {
		return f, name, false, true
	}
	if c, ok := r.legacy[name]; ok {
		return r.factories[c], c, true, true
	}
	return nil, "", false, false
}

// New builds an unparsed command by script name.
func (r *Registry) New(name string) (command.Command, error) {
	f, _, _, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown command '%s'", name)
	}
	return f(), nil
}

// Names returns the canonical command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LegacyAliases returns legacy spelling → canonical name.
func (r *Registry) LegacyAliases() map[string]string {
	out := make(map[string]string, len(r.legacy))
	for k, v := range r.legacy {
		out[k] = v
	}
	return out
}
