// Package request is the indirection layer between commands and the
// processor. Commands never hold the processor's state; they send named
// requests carrying a parameter bag and receive a result bag.
package request

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/tsflow/internal/props"
)

// Requester is what a command sees of the processor.
type Requester interface {
	// ProcessRequest dispatches a named request synchronously.
	ProcessRequest(ctx context.Context, name string, params *props.Bag) (*props.Bag, error)
	// PropContents returns a global property, absent when unset.
	PropContents(key string) (props.Value, error)
	// SetPropContents sets a global property.
	SetPropContents(key string, value props.Value) error
}

// Handler serves one named request.
type Handler func(ctx context.Context, params *props.Bag) (*props.Bag, error)

// UnknownRequestError means no handler is registered for the name.
type UnknownRequestError struct {
	Name string
}

func (e *UnknownRequestError) Error() string {
	return fmt.Sprintf("processor does not understand request %q", e.Name)
}

// RequestFailure wraps an error returned by a handler.
type RequestFailure struct {
	Name   string
	Params string
	Err    error
}

func (e *RequestFailure) Error() string {
	return fmt.Sprintf("Error requesting %s(%s) from processor: %v", e.Name, e.Params, e.Err)
}

func (e *RequestFailure) Unwrap() error { return e.Err }

// Dispatcher maps request names, case-insensitively, to handlers.
type Dispatcher struct {
	handlers map[string]registered
}

type registered struct {
	name string
	fn   Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]registered)}
}

// Register binds a handler to a request name. Registering a name twice is a
// programmer error and panics.
func (d *Dispatcher) Register(name string, h Handler) {
	key := strings.ToLower(name)
	if _, exists := d.handlers[key]; exists {
		panic(fmt.Sprintf("request handler with name '%s' already registered", name))
	}
	slog.Debug("Registering request handler.", "name", name)
	d.handlers[key] = registered{name: name, fn: h}
}

// Has reports whether a handler is registered for name.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.handlers[strings.ToLower(name)]
	return ok
}

// Names returns the registered request names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for _, r := range d.handlers {
		names = append(names, r.name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler for name. A nil params bag is treated as empty;
// a handler returning a nil result yields an empty bag.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params *props.Bag) (*props.Bag, error) {
	r, ok := d.handlers[strings.ToLower(name)]
	if !ok {
		return nil, &UnknownRequestError{Name: name}
	}
	if params == nil {
		params = props.New()
	}
	results, err := r.fn(ctx, params)
	if err != nil {
		return nil, &RequestFailure{Name: r.name, Params: params.String(), Err: err}
	}
	if results == nil {
		results = props.New()
	}
	return results, nil
}

// Params builds a parameter bag from alternating key/value pairs. Values may
// be props.Value or one of string, int, int64, float64, bool.
func Params(kv ...any) *props.Bag {
	if len(kv)%2 != 0 {
		panic("request.Params: odd number of arguments")
	}
	b := props.New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("request.Params: key %v is not a string", kv[i]))
		}
		var v props.Value
		switch x := kv[i+1].(type) {
		case props.Value:
			v = x
		case string:
			v = props.StringValue(x)
		case int:
			v = props.IntValue(int64(x))
		case int64:
			v = props.IntValue(x)
		case float64:
			v = props.FloatValue(x)
		case bool:
			v = props.BoolValue(x)
		default:
			v = props.ObjectValue(x)
		}
		b.Set(key, v, props.HowSetUnknown)
	}
	return b
}
