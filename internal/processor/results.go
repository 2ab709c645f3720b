package processor

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/tsflow/internal/timeseries"
)

// ResultCollection is an arena of time series handles addressed by stable
// integer indices. Entries are appended or replaced in place; nothing is ever
// removed during a run, so an index handed out stays valid until the next
// reset. It is not safe for concurrent use; GlobalState guards it.
type ResultCollection struct {
	items []*timeseries.TimeSeries
}

// Len returns the number of entries.
func (c *ResultCollection) Len() int { return len(c.items) }

// Append adds ts and returns its index.
func (c *ResultCollection) Append(ts *timeseries.TimeSeries) (int, error) {
	if ts == nil {
		return -1, fmt.Errorf("cannot append a nil time series")
	}
	c.items = append(c.items, ts)
	return len(c.items) - 1, nil
}

// Update replaces the entry at index i. The length and every other entry are
// unchanged.
func (c *ResultCollection) Update(i int, ts *timeseries.TimeSeries) error {
	if ts == nil {
		return fmt.Errorf("cannot update index %d with a nil time series", i)
	}
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("index %d is out of range [0,%d)", i, len(c.items))
	}
	c.items[i] = ts
	return nil
}

// Get returns the entry at index i.
func (c *ResultCollection) Get(i int) (*timeseries.TimeSeries, error) {
	if i < 0 || i >= len(c.items) {
		return nil, fmt.Errorf("index %d is out of range [0,%d)", i, len(c.items))
	}
	return c.items[i], nil
}

// Snapshot returns a copy of the handle list.
func (c *ResultCollection) Snapshot() []*timeseries.TimeSeries {
	return append([]*timeseries.TimeSeries(nil), c.items...)
}

// Replace swaps the whole collection.
func (c *ResultCollection) Replace(list []*timeseries.TimeSeries) error {
	for i, ts := range list {
		if ts == nil {
			return fmt.Errorf("time series at index %d is nil", i)
		}
	}
	c.items = append([]*timeseries.TimeSeries(nil), list...)
	return nil
}

// IndexOf finds a literal identifier: the alias, the identifier without its
// origin, or the full identifier, compared without case. The most recent
// matching entry wins. It returns -1 when nothing matches.
func (c *ResultCollection) IndexOf(id string) int {
	id = strings.TrimSpace(id)
	for i := len(c.items) - 1; i >= 0; i-- {
		ts := c.items[i]
		if (ts.Alias != "" && strings.EqualFold(ts.Alias, id)) ||
			strings.EqualFold(ts.Ident.Key(), id) ||
			strings.EqualFold(ts.Ident.String(), id) {
			return i
		}
	}
	return -1
}

// Match returns, in order, the indices of entries selected by a TSID pattern.
func (c *ResultCollection) Match(pattern string) []int {
	var out []int
	for i, ts := range c.items {
		if ts.Matches(pattern) {
			out = append(out, i)
		}
	}
	return out
}
