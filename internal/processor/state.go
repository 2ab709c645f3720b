package processor

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/tsflow/internal/props"
)

// Well-known global property names.
const (
	PropWorkingDir        = "WorkingDir"
	PropInputStart        = "InputStart"
	PropInputEnd          = "InputEnd"
	PropTSResultsList     = "TSResultsList"
	PropTSResultsListSize = "TSResultsListSize"
	PropDataStoreNames    = "DataStoreNames"
)

// GlobalState is the processor-owned shared state: global properties, the
// result collection and open datastore handles. Every access goes through
// its methods, which serialize on one mutex.
type GlobalState struct {
	mu         sync.Mutex
	initial    *props.Bag
	props      *props.Bag
	results    *ResultCollection
	datastores map[string]datastoreEntry
	scratch    bool
}

type datastoreEntry struct {
	name   string
	handle any
}

// NewGlobalState creates state seeded with initial properties. Seed values
// survive Reset; everything set at run time does not.
func NewGlobalState(initial *props.Bag) *GlobalState {
	seed := props.New()
	for _, e := range initial.Entries() {
		seed.Set(e.Key, e.Value, props.HowSetFromPersistent)
	}
	return &GlobalState{
		initial:    seed,
		props:      seed.Clone(),
		results:    &ResultCollection{},
		datastores: make(map[string]datastoreEntry),
	}
}

// Reset restores the seed properties and empties the result collection.
// Open datastores are kept.
func (s *GlobalState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props = s.initial.Clone()
	s.results = &ResultCollection{}
}

// Scratch returns a fresh state with the same seed and the same datastore
// names, used for discovery so that it never disturbs run results.
func (s *GlobalState) Scratch() *GlobalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &GlobalState{
		initial:    s.initial,
		props:      s.initial.Clone(),
		results:    &ResultCollection{},
		datastores: make(map[string]datastoreEntry, len(s.datastores)),
		scratch:    true,
	}
	for k, v := range s.datastores {
		c.datastores[k] = v
	}
	return c
}

// Get returns a global property.
func (s *GlobalState) Get(key string) props.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.EqualFold(key, PropTSResultsList):
		return props.TimeSeriesValue(s.results.Snapshot())
	case strings.EqualFold(key, PropTSResultsListSize):
		return props.IntValue(int64(s.results.Len()))
	case strings.EqualFold(key, PropDataStoreNames):
		return props.StringValue(strings.Join(s.datastoreNamesLocked(), ","))
	}
	return s.props.Value(key)
}

// Set stores a global property. Well-known properties are type checked;
// setting any property to the absent value removes it.
func (s *GlobalState) Set(key string, v props.Value, how props.HowSet) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("property name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.EqualFold(key, PropTSResultsListSize), strings.EqualFold(key, PropDataStoreNames):
		return fmt.Errorf("property %s is read-only", key)
	case strings.EqualFold(key, PropTSResultsList):
		list, err := v.AsTimeSeriesList()
		if err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
		return s.results.Replace(list)
	case strings.EqualFold(key, PropWorkingDir):
		if _, err := v.AsString(); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	case strings.EqualFold(key, PropInputStart), strings.EqualFold(key, PropInputEnd):
		if !v.IsAbsent() {
			if _, err := v.AsTime(); err != nil {
				return fmt.Errorf("property %s: %w", key, err)
			}
		}
	}

	if v.IsAbsent() {
		s.props.Unset(key)
		return nil
	}
	s.props.Set(key, v, how)
	return nil
}

// Properties returns a copy of the property bag, without the computed
// result-list properties.
func (s *GlobalState) Properties() *props.Bag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.Clone()
}

// Results runs fn with exclusive access to the result collection.
func (s *GlobalState) Results(fn func(*ResultCollection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.results)
}

// SetDataStore registers an open datastore handle under name, replacing and
// closing any handle previously registered under that name.
func (s *GlobalState) SetDataStore(name string, handle any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("datastore name cannot be empty")
	}
	if handle == nil {
		return fmt.Errorf("datastore %q handle is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if old, ok := s.datastores[key]; ok && old.handle != handle && !s.scratch {
		if c, ok := old.handle.(io.Closer); ok {
			if err := c.Close(); err != nil {
				return fmt.Errorf("closing previous datastore %q: %w", name, err)
			}
		}
	}
	s.datastores[key] = datastoreEntry{name: name, handle: handle}
	return nil
}

// DataStore returns the handle registered under name.
func (s *GlobalState) DataStore(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.datastores[strings.ToLower(strings.TrimSpace(name))]
	return e.handle, ok
}

func (s *GlobalState) datastoreNamesLocked() []string {
	names := make([]string, 0, len(s.datastores))
	for _, e := range s.datastores {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// Close closes every datastore handle that implements io.Closer.
func (s *GlobalState) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for key, e := range s.datastores {
		if c, ok := e.handle.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing datastore %q: %w", e.name, err))
			}
		}
		delete(s.datastores, key)
	}
	return errors.Join(errs...)
}

// check verifies the arena invariant after a command has run.
func (s *GlobalState) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ts := range s.results.items {
		if ts == nil {
			return fmt.Errorf("result collection holds a nil entry at index %d", i)
		}
	}
	return nil
}
