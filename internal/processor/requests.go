package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/timeseries"
)

// Values accepted for the TSList parameter of GetTimeSeriesToProcess.
const (
	TSListAllTS            = "AllTS"
	TSListAllMatchingTSID  = "AllMatchingTSID"
	TSListLastMatchingTSID = "LastMatchingTSID"
)

// Actions accepted by ProcessTimeSeriesAction.
const (
	ActionAdd    = "Add"
	ActionUpdate = "Update"
)

var propertyRef = regexp.MustCompile(`\$\{([^}]*)\}`)

// dateLayouts are tried in order when parsing date/time text.
var dateLayouts = []string{
	props.DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
	"01/02/2006",
}

func (p *Processor) registerRequests() {
	d := p.dispatcher
	d.Register("GetProperty", p.getProperty)
	d.Register("SetProperty", p.setProperty)
	d.Register("GetProperties", p.getProperties)
	d.Register("ExpandString", p.expandString)
	d.Register("DateTime", p.dateTime)
	d.Register("IndexOf", p.indexOf)
	d.Register("GetTimeSeries", p.getTimeSeries)
	d.Register("GetTimeSeriesToProcess", p.getTimeSeriesToProcess)
	d.Register("ProcessTimeSeriesAction", p.processTimeSeriesAction)
	d.Register("SetDataStore", p.setDataStore)
	d.Register("GetDataStore", p.getDataStore)
	d.Register("CancelProcessing", p.cancelProcessing)
}

func requiredString(params *props.Bag, key string) (string, error) {
	v, ok := params.Get(key)
	if !ok || v.IsAbsent() {
		return "", fmt.Errorf("missing %s parameter", key)
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", key, err)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("parameter %s is empty", key)
	}
	return s, nil
}

func requiredInt(params *props.Bag, key string) (int, error) {
	v, ok := params.Get(key)
	if !ok || v.IsAbsent() {
		return 0, fmt.Errorf("missing %s parameter", key)
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	return int(i), nil
}

func (p *Processor) getProperty(_ context.Context, params *props.Bag) (*props.Bag, error) {
	name, err := requiredString(params, "PropertyName")
	if err != nil {
		return nil, err
	}
	out := props.New()
	out.Set("PropertyValue", p.active.Load().Get(name), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) setProperty(_ context.Context, params *props.Bag) (*props.Bag, error) {
	name, err := requiredString(params, "PropertyName")
	if err != nil {
		return nil, err
	}
	return nil, p.active.Load().Set(name, params.Value("PropertyValue"), props.HowSetRuntime)
}

func (p *Processor) getProperties(context.Context, *props.Bag) (*props.Bag, error) {
	return p.active.Load().Properties(), nil
}

func (p *Processor) expandString(_ context.Context, params *props.Bag) (*props.Bag, error) {
	text, err := params.GetString("Text")
	if err != nil {
		return nil, err
	}
	out := props.New()
	out.SetString("Text", p.expand(text), props.HowSetRuntime)
	return out, nil
}

// expand replaces ${Name} with the text of the property. References to
// unset properties are left as written.
func (p *Processor) expand(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	state := p.active.Load()
	return propertyRef.ReplaceAllStringFunc(text, func(ref string) string {
		name := strings.TrimSpace(ref[2 : len(ref)-1])
		v := state.Get(name)
		if v.IsAbsent() {
			return ref
		}
		return v.String()
	})
}

func (p *Processor) dateTime(_ context.Context, params *props.Bag) (*props.Bag, error) {
	text, err := requiredString(params, "DateTime")
	if err != nil {
		return nil, err
	}
	t, err := p.parseDateTime(text)
	if err != nil {
		return nil, err
	}
	out := props.New()
	out.Set("DateTime", props.TimeValue(t), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) parseDateTime(text string) (time.Time, error) {
	s := strings.TrimSpace(p.expand(text))
	for _, key := range []string{PropInputStart, PropInputEnd} {
		if !strings.EqualFold(s, key) {
			continue
		}
		v := p.active.Load().Get(key)
		if v.IsAbsent() {
			return time.Time{}, fmt.Errorf("%s is not set", key)
		}
		return v.AsTime()
	}
	if strings.Contains(s, "${") {
		return time.Time{}, fmt.Errorf("date/time %q refers to an unset property", s)
	}
	return ParseDateTime(s)
}

// ParseDateTime parses literal date/time text in any accepted layout, from
// a full date-time down to a bare year.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date/time", s)
}

func (p *Processor) indexOf(_ context.Context, params *props.Bag) (*props.Bag, error) {
	id, err := requiredString(params, "TSID")
	if err != nil {
		return nil, err
	}
	var idx int
	_ = p.active.Load().Results(func(c *ResultCollection) error {
		idx = c.IndexOf(id)
		return nil
	})
	out := props.New()
	out.Set("Index", props.IntValue(int64(idx)), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) getTimeSeries(_ context.Context, params *props.Bag) (*props.Bag, error) {
	i, err := requiredInt(params, "Index")
	if err != nil {
		return nil, err
	}
	var ts *timeseries.TimeSeries
	err = p.active.Load().Results(func(c *ResultCollection) error {
		var err error
		ts, err = c.Get(i)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := props.New()
	out.Set("TS", props.ObjectValue(ts), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) getTimeSeriesToProcess(_ context.Context, params *props.Bag) (*props.Bag, error) {
	mode := strings.TrimSpace(params.Text("TSList"))
	if mode == "" {
		mode = TSListAllTS
	}
	pattern := strings.TrimSpace(params.Text("TSID"))

	var indices []int
	var list []*timeseries.TimeSeries
	err := p.active.Load().Results(func(c *ResultCollection) error {
		switch {
		case strings.EqualFold(mode, TSListAllTS):
			for i := 0; i < c.Len(); i++ {
				indices = append(indices, i)
			}
		case strings.EqualFold(mode, TSListAllMatchingTSID), strings.EqualFold(mode, TSListLastMatchingTSID):
			if pattern == "" {
				return fmt.Errorf("TSList=%s requires TSID", mode)
			}
			indices = c.Match(pattern)
			if len(indices) == 0 {
				// Aliases are not patterns; fall back to a literal lookup.
				if i := c.IndexOf(pattern); i >= 0 {
					indices = []int{i}
				}
			}
			if strings.EqualFold(mode, TSListLastMatchingTSID) && len(indices) > 1 {
				indices = indices[len(indices)-1:]
			}
		default:
			return fmt.Errorf("unknown TSList value %q", mode)
		}
		for _, i := range indices {
			ts, _ := c.Get(i)
			list = append(list, ts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := props.New()
	out.Set("TSList", props.TimeSeriesValue(list), props.HowSetRuntime)
	out.Set("Indices", props.ObjectValue(indices), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) processTimeSeriesAction(_ context.Context, params *props.Bag) (*props.Bag, error) {
	action, err := requiredString(params, "Action")
	if err != nil {
		return nil, err
	}
	ts, err := props.ObjectAs[*timeseries.TimeSeries](params.Value("TS"))
	if err != nil {
		return nil, fmt.Errorf("parameter TS: %w", err)
	}

	var idx int
	switch {
	case strings.EqualFold(action, ActionAdd):
		err = p.active.Load().Results(func(c *ResultCollection) error {
			var err error
			idx, err = c.Append(ts)
			return err
		})
	case strings.EqualFold(action, ActionUpdate):
		idx, err = requiredInt(params, "Index")
		if err != nil {
			return nil, err
		}
		err = p.active.Load().Results(func(c *ResultCollection) error {
			return c.Update(idx, ts)
		})
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return nil, err
	}

	out := props.New()
	out.Set("Index", props.IntValue(int64(idx)), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) setDataStore(_ context.Context, params *props.Bag) (*props.Bag, error) {
	name, err := requiredString(params, "DataStore")
	if err != nil {
		return nil, err
	}
	handle, err := params.Value("Handle").AsObject()
	if err != nil {
		return nil, fmt.Errorf("parameter Handle: %w", err)
	}
	return nil, p.active.Load().SetDataStore(name, handle)
}

func (p *Processor) getDataStore(_ context.Context, params *props.Bag) (*props.Bag, error) {
	name, err := requiredString(params, "DataStore")
	if err != nil {
		return nil, err
	}
	handle, ok := p.active.Load().DataStore(name)
	if !ok {
		return nil, fmt.Errorf("no datastore named %q is open", name)
	}
	out := props.New()
	out.Set("Handle", props.ObjectValue(handle), props.HowSetRuntime)
	return out, nil
}

func (p *Processor) cancelProcessing(context.Context, *props.Bag) (*props.Bag, error) {
	p.Cancel()
	return nil, nil
}
