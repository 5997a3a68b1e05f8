package perfapi

import (
	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/timing"
)

// Observed is the per-name state shared by both observer kinds.
//
// All fields are guarded by the owning API's mutex.
type observed[T perftiming.Timed] struct {
	obs       *timing.Observer
	connected bool
	entries   []T
}

// Drain pulls entries that are queued but not yet delivered.
func (o *observed[T]) drain(conv func(timing.Entry) T) {
	if o.obs == nil {
		return
	}
	for _, e := range o.obs.TakeRecords() {
		o.entries = append(o.entries, conv(e))
	}
}

type functionObserver struct {
	observed[perftiming.Entry]
	original any
}

func (f *functionObserver) add(es []timing.Entry) {
	for _, e := range es {
		f.entries = append(f.entries, functionEntry(e))
	}
}

func (f *functionObserver) state() *observed[perftiming.Entry] { return &f.observed }

func (f *functionObserver) convert(e timing.Entry) perftiming.Entry { return functionEntry(e) }

type measurementObserver struct {
	observed[perftiming.MeasurementEntry]
}

func (m *measurementObserver) add(es []timing.Entry) {
	for _, e := range es {
		m.entries = append(m.entries, measurementEntry(e))
	}
}

func (m *measurementObserver) state() *observed[perftiming.MeasurementEntry] { return &m.observed }

func (m *measurementObserver) convert(e timing.Entry) perftiming.MeasurementEntry {
	return measurementEntry(e)
}

func functionEntry(e timing.Entry) perftiming.Entry {
	return perftiming.Entry{
		Name:      e.Name,
		StartTime: e.StartTime,
		Duration:  e.Duration,
	}
}

func measurementEntry(e timing.Entry) perftiming.MeasurementEntry {
	return perftiming.MeasurementEntry{
		Entry:     functionEntry(e),
		StartMark: e.StartMark,
		EndMark:   e.EndMark,
	}
}

// Record is implemented by the per-name observer kinds.
type record[T perftiming.Timed] interface {
	state() *observed[T]
	convert(timing.Entry) T
}

// Collection is an insertion-ordered map of per-name observers.
type collection[T perftiming.Timed, R record[T]] struct {
	names  []string
	lookup map[string]R
}

// Get returns the record for name, creating it with mk on first use.
func (c *collection[T, R]) get(name string, mk func() R) R {
	r, ok := c.lookup[name]
	if !ok {
		r = mk()
		c.lookup[name] = r
		c.names = append(c.names, name)
	}
	return r
}

// Aggregate builds one metric per name in insertion order. Entries are
// copied so later deliveries don't alias the result.
func (c *collection[T, R]) aggregate() []perftiming.Metric[T] {
	out := make([]perftiming.Metric[T], 0, len(c.names))
	for _, n := range c.names {
		st := c.lookup[n].state()
		st.drain(c.lookup[n].convert)
		es := make([]T, len(st.entries))
		copy(es, st.entries)
		out = append(out, perftiming.NewMetric(n, es))
	}
	return out
}
