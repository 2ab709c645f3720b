// Package props provides the ordered, case-insensitive property bag used for
// command parameters and for the processor's global state, together with the
// closed Value union stored in it.
package props

import (
	"strings"
)

// HowSet records where a property value came from.
type HowSet int

const (
	// HowSetUnknown is used when the origin does not matter.
	HowSetUnknown HowSet = iota
	// HowSetFromPersistent marks values parsed from script text or configuration.
	HowSetFromPersistent
	// HowSetRuntime marks values computed during a run. They are never
	// serialized back to script text.
	HowSetRuntime
)

func (h HowSet) String() string {
	switch h {
	case HowSetFromPersistent:
		return "FromPersistent"
	case HowSetRuntime:
		return "Runtime"
	}
	return "Unknown"
}

// Entry is a single property.
type Entry struct {
	Key    string
	Value  Value
	HowSet HowSet
}

// Bag is an ordered property container with case-insensitive keys. The zero
// value is an empty bag ready to use. A Bag is not safe for concurrent use.
type Bag struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty bag.
func New() *Bag {
	return &Bag{}
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (b *Bag) lookup(key string) (int, bool) {
	if b == nil || b.index == nil {
		return 0, false
	}
	i, ok := b.index[normalize(key)]
	return i, ok
}

// Len returns the number of entries.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Get returns the value for key. The returned Value is absent when the key is
// not present.
func (b *Bag) Get(key string) (Value, bool) {
	i, ok := b.lookup(key)
	if !ok {
		return Value{}, false
	}
	return b.entries[i].Value, true
}

// Value returns the value for key, absent when missing.
func (b *Bag) Value(key string) Value {
	v, _ := b.Get(key)
	return v
}

// Has reports whether key is present.
func (b *Bag) Has(key string) bool {
	_, ok := b.lookup(key)
	return ok
}

// Entry returns the full entry for key.
func (b *Bag) Entry(key string) (Entry, bool) {
	i, ok := b.lookup(key)
	if !ok {
		return Entry{}, false
	}
	return b.entries[i], true
}

// Set stores value under key. An existing key keeps its position and its
// original spelling.
func (b *Bag) Set(key string, value Value, how HowSet) {
	if i, ok := b.lookup(key); ok {
		b.entries[i].Value = value
		b.entries[i].HowSet = how
		return
	}
	if b.index == nil {
		b.index = make(map[string]int)
	}
	key = strings.TrimSpace(key)
	b.index[normalize(key)] = len(b.entries)
	b.entries = append(b.entries, Entry{Key: key, Value: value, HowSet: how})
}

// SetString is shorthand for Set with a string value.
func (b *Bag) SetString(key, value string, how HowSet) {
	b.Set(key, StringValue(value), how)
}

// Unset removes key. It reports whether the key was present.
func (b *Bag) Unset(key string) bool {
	i, ok := b.lookup(key)
	if !ok {
		return false
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.reindex()
	return true
}

func (b *Bag) reindex() {
	b.index = make(map[string]int, len(b.entries))
	for i, e := range b.entries {
		b.index[normalize(e.Key)] = i
	}
}

// Keys returns the keys in order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (b *Bag) Entries() []Entry {
	if b == nil {
		return nil
	}
	return append([]Entry(nil), b.entries...)
}

// Clone returns a copy of the bag. Values are copied; objects and series
// inside them are shared.
func (b *Bag) Clone() *Bag {
	c := New()
	if b == nil {
		return c
	}
	c.entries = append([]Entry(nil), b.entries...)
	c.reindex()
	return c
}

// Equal reports whether both bags hold the same keys, in the same order, with
// equal values and origins.
func (b *Bag) Equal(o *Bag) bool {
	if b.Len() != o.Len() {
		return false
	}
	for i := 0; i < b.Len(); i++ {
		x, y := b.entries[i], o.entries[i]
		if normalize(x.Key) != normalize(y.Key) || x.HowSet != y.HowSet || !x.Value.Equal(y.Value) {
			return false
		}
	}
	return true
}

// GetString returns the string value for key, or "" if absent. Non-string
// values produce a TypeError.
func (b *Bag) GetString(key string) (string, error) {
	v, ok := b.Get(key)
	if !ok {
		return "", nil
	}
	return v.AsString()
}

// Text returns the string rendering of key's value, "" when absent.
func (b *Bag) Text(key string) string {
	return b.Value(key).String()
}
