package diag

import "fmt"

type phaseLog struct {
	ran       bool
	records   []LogRecord
	aggregate Severity
}

// Diagnostics holds per-phase log records and a cached aggregate severity per
// phase. The cache is only updated by Refresh, so callers refresh after a
// batch of additions. The zero value is ready to use.
type Diagnostics struct {
	phases [len(phaseNames)]phaseLog
}

// New returns empty diagnostics.
func New() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) log(p Phase) *phaseLog {
	if p < 0 || int(p) >= len(d.phases) {
		panic(fmt.Sprintf("diag: invalid phase %d", int(p)))
	}
	return &d.phases[p]
}

// Add appends a record to phase p and marks the phase as run.
func (d *Diagnostics) Add(p Phase, sev Severity, message, recommendation string) {
	l := d.log(p)
	l.ran = true
	l.records = append(l.records, LogRecord{Severity: sev, Message: message, Recommendation: recommendation})
}

// Addf appends a record with a formatted message.
func (d *Diagnostics) Addf(p Phase, sev Severity, recommendation, format string, args ...any) {
	d.Add(p, sev, fmt.Sprintf(format, args...), recommendation)
}

// Clear removes every record of phase p and marks it as run. The aggregate
// is reset to Unknown until the next Refresh.
func (d *Diagnostics) Clear(p Phase) {
	l := d.log(p)
	l.ran = true
	l.records = nil
	l.aggregate = Unknown
}

// Reset forgets phase p entirely, as if it had never run.
func (d *Diagnostics) Reset(p Phase) {
	*d.log(p) = phaseLog{}
}

// Refresh recomputes every phase aggregate: the maximum record severity, or
// Success for a phase that ran without records, or Unknown for a phase that
// never ran.
func (d *Diagnostics) Refresh() {
	for i := range d.phases {
		l := &d.phases[i]
		switch {
		case !l.ran:
			l.aggregate = Unknown
		case len(l.records) == 0:
			l.aggregate = Success
		default:
			agg := Unknown
			for _, r := range l.records {
				agg = max(agg, r.Severity)
			}
			l.aggregate = agg
		}
	}
}

// Severity returns the cached aggregate for phase p.
func (d *Diagnostics) Severity(p Phase) Severity {
	return d.log(p).aggregate
}

// Max returns the highest cached aggregate across all phases.
func (d *Diagnostics) Max() Severity {
	agg := Unknown
	for _, l := range d.phases {
		agg = max(agg, l.aggregate)
	}
	return agg
}

// Ran reports whether phase p was run (cleared or written to).
func (d *Diagnostics) Ran(p Phase) bool {
	return d.log(p).ran
}

// Records returns a copy of the records of phase p in insertion order.
func (d *Diagnostics) Records(p Phase) []LogRecord {
	return append([]LogRecord(nil), d.log(p).records...)
}

// Count returns how many records of phase p have exactly severity sev.
func (d *Diagnostics) Count(p Phase, sev Severity) int {
	n := 0
	for _, r := range d.log(p).records {
		if r.Severity == sev {
			n++
		}
	}
	return n
}

// Highest returns the maximum severity of the records of phase p, without
// consulting the cache.
func (d *Diagnostics) Highest(p Phase) Severity {
	agg := Unknown
	for _, r := range d.log(p).records {
		agg = max(agg, r.Severity)
	}
	return agg
}

// Messages returns the messages of phase p at or above severity floor.
func (d *Diagnostics) Messages(p Phase, floor Severity) []string {
	var out []string
	for _, r := range d.log(p).records {
		if r.Severity >= floor {
			out = append(out, r.Message)
		}
	}
	return out
}
