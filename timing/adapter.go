package timing

import (
	"context"
	"sync"

	"github.com/zowe/perf-timing"
)

// Adapter is the narrow view of a Timeline used by the instrumentation API.
//
// A disabled Adapter never touches a Timeline: every method is a no-op that
// returns a zero value. An enabled Adapter resolves its Timeline on first
// use.
type Adapter struct {
	enabled  bool
	timeline func() *Timeline
}

// NewAdapter returns an Adapter. If timeline is nil, [Default] is used.
func NewAdapter(enabled bool, timeline func() *Timeline) *Adapter {
	if timeline == nil {
		timeline = Default
	}
	return &Adapter{
		enabled:  enabled,
		timeline: sync.OnceValue(timeline),
	}
}

// Enabled reports whether the Adapter forwards to a Timeline.
func (a *Adapter) Enabled() bool { return a.enabled }

// Timeline returns the backing Timeline, or nil if the Adapter is disabled.
func (a *Adapter) Timeline() *Timeline {
	if !a.enabled {
		return nil
	}
	return a.timeline()
}

// Mark forwards to [Timeline.Mark].
func (a *Adapter) Mark(name string) {
	if !a.enabled {
		return
	}
	a.timeline().Mark(name)
}

// ClearMarks forwards to [Timeline.ClearMarks].
func (a *Adapter) ClearMarks(name string) {
	if !a.enabled {
		return
	}
	a.timeline().ClearMarks(name)
}

// ClearMarksPrefix forwards to [Timeline.ClearMarksPrefix].
func (a *Adapter) ClearMarksPrefix(prefix string) {
	if !a.enabled {
		return
	}
	a.timeline().ClearMarksPrefix(prefix)
}

// Measure forwards to [Timeline.Measure].
func (a *Adapter) Measure(name, startMark, endMark string) (Entry, error) {
	if !a.enabled {
		return Entry{}, nil
	}
	return a.timeline().Measure(name, startMark, endMark)
}

// Timerify forwards to [Timeline.Timerify]. A disabled Adapter returns fn
// unchanged.
func (a *Adapter) Timerify(fn any, name string) (any, error) {
	if !a.enabled {
		return fn, nil
	}
	return a.timeline().Timerify(fn, name)
}

// Observe forwards to [Timeline.Observe]. A disabled Adapter returns nil.
func (a *Adapter) Observe(cb Callback, opts ObserveOptions) *Observer {
	if !a.enabled {
		return nil
	}
	return a.timeline().Observe(cb, opts)
}

// ProcessTiming forwards to [Timeline.ProcessTiming].
func (a *Adapter) ProcessTiming() perftiming.ProcessTiming {
	if !a.enabled {
		return perftiming.ProcessTiming{}
	}
	return a.timeline().ProcessTiming()
}

// Drain forwards to [Timeline.Drain].
func (a *Adapter) Drain(ctx context.Context) error {
	if !a.enabled {
		return nil
	}
	return a.timeline().Drain(ctx)
}
