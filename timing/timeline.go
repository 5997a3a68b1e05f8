// Package timing provides the process timeline that perf-timing records into,
// and the Adapter the instrumentation API uses to reach it.
//
// The timeline follows the shape of the W3C User Timing and Performance
// Timeline interfaces: named marks, measures between marks, timed function
// calls, and observers that are notified of new entries asynchronously.
package timing

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/zowe/perf-timing"
)

// EntryType is the kind of a timeline entry.
type EntryType string

// Entry types recorded by a Timeline.
const (
	EntryMark     EntryType = "mark"
	EntryMeasure  EntryType = "measure"
	EntryFunction EntryType = "function"
)

// Entry is a single timeline record.
//
// StartTime and Duration are milliseconds; StartTime is relative to the
// timeline origin. Marks have a zero Duration. StartMark and EndMark are only
// populated for measures.
type Entry struct {
	Name      string
	Type      EntryType
	StartTime float64
	Duration  float64
	StartMark string
	EndMark   string
}

// Timeline records marks, measures and function timings.
//
// Mark and measure entries are buffered on the Timeline; function entries are
// only delivered to observers. All methods are safe for concurrent use.
type Timeline struct {
	origin time.Time

	mu        sync.Mutex
	cond      *sync.Cond
	marks     map[string][]float64
	entries   []Entry
	observers []*Observer
	pending   *queue.Queue // of *Observer
	inflight  int
	started   bool
	closed    bool
}

// New returns a Timeline with its origin set to the current time.
func New() *Timeline {
	t := &Timeline{
		origin:  time.Now(),
		marks:   make(map[string][]float64),
		pending: queue.New(),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

var defaultTimeline = sync.OnceValue(New)

// Default returns the process-wide Timeline.
//
// Every instrumented package in a process shares it; names are kept apart by
// namespacing at the API layer.
func Default() *Timeline {
	return defaultTimeline()
}

// Now reports the milliseconds elapsed since the timeline origin.
func (t *Timeline) Now() float64 {
	return millis(time.Since(t.origin))
}

// Origin reports the timeline origin.
func (t *Timeline) Origin() time.Time {
	return t.origin
}

// Mark records a named timestamp.
//
// Marking the same name again records another timestamp; measures use the
// most recent one.
func (t *Timeline) Mark(name string) {
	now := t.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marks[name] = append(t.marks[name], now)
	t.recordLocked(Entry{
		Name:      name,
		Type:      EntryMark,
		StartTime: now,
	})
}

// ClearMarks removes all marks with the provided name, or every mark if name
// is empty.
func (t *Timeline) ClearMarks(name string) {
	if name == "" {
		t.clearMarks(func(string) bool { return true })
		return
	}
	t.clearMarks(func(n string) bool { return n == name })
}

// ClearMarksPrefix removes all marks whose name begins with prefix.
func (t *Timeline) ClearMarksPrefix(prefix string) {
	t.clearMarks(func(n string) bool { return strings.HasPrefix(n, prefix) })
}

func (t *Timeline) clearMarks(match func(string) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for n := range t.marks {
		if match(n) {
			delete(t.marks, n)
		}
	}
	t.entries = slices.DeleteFunc(t.entries, func(e Entry) bool {
		return e.Type == EntryMark && match(e.Name)
	})
}

// Measure records the duration between two marks.
//
// An empty startMark measures from the timeline origin and an empty endMark
// measures to the current time. Naming a mark that does not exist is an
// error.
func (t *Timeline) Measure(name, startMark, endMark string) (Entry, error) {
	const op = `timing.Measure`
	now := t.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	start, end := 0.0, now
	if startMark != "" {
		v, ok := t.lastMarkLocked(startMark)
		if !ok {
			return Entry{}, errMark(op, startMark)
		}
		start = v
	}
	if endMark != "" {
		v, ok := t.lastMarkLocked(endMark)
		if !ok {
			return Entry{}, errMark(op, endMark)
		}
		end = v
	}
	e := Entry{
		Name:      name,
		Type:      EntryMeasure,
		StartTime: start,
		Duration:  end - start,
		StartMark: startMark,
		EndMark:   endMark,
	}
	t.recordLocked(e)
	return e, nil
}

func errMark(op, name string) error {
	return &perftiming.Error{
		Op:      op,
		Kind:    perftiming.ErrNotFound,
		Message: fmt.Sprintf("mark %q does not exist", name),
	}
}

func (t *Timeline) lastMarkLocked(name string) (float64, bool) {
	ms := t.marks[name]
	if len(ms) == 0 {
		return 0, false
	}
	return ms[len(ms)-1], true
}

// Entries returns a copy of the buffered entries in the order they were
// recorded.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// EntriesByName returns the buffered entries with the provided name,
// optionally restricted to the provided types.
func (t *Timeline) EntriesByName(name string, types ...EntryType) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Entry
	for _, e := range t.entries {
		if e.Name != name {
			continue
		}
		if len(types) != 0 && !slices.Contains(types, e.Type) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (t *Timeline) record(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordLocked(e)
}

// RecordLocked buffers the entry if needed and queues it for every matching
// observer. The caller must hold t.mu.
func (t *Timeline) recordLocked(e Entry) {
	if e.Type != EntryFunction {
		t.entries = append(t.entries, e)
	}
	for _, o := range t.observers {
		if !o.matches(e) {
			continue
		}
		o.buf = append(o.buf, e)
		t.scheduleLocked(o)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
