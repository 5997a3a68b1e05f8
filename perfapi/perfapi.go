// Package perfapi is the instrumentation API handed out by a manager.
//
// Every name passed to an API is namespaced with the owning package's
// identity before it reaches the timeline, so unrelated packages can use the
// same names. Callers only ever refer to their own, un-namespaced, names.
//
// When the owning manager is disabled every instrumentation call is a no-op
// and [API.Watch] and [API.Unwatch] return their input, so instrumented code
// never needs to branch. Only the methods that read captured data report an
// error, [perftiming.ErrPerformanceNotCaptured].
//
// Measurements and function calls are delivered to the API asynchronously:
// [API.Metrics] reflects everything recorded before it was called except
// batches that are mid-delivery. Use [API.Drain] first to wait for those.
package perfapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/registry"
	"github.com/zowe/perf-timing/sysinfo"
	"github.com/zowe/perf-timing/timing"
)

// Manager is what an API needs from its owning manager.
type Manager interface {
	Enabled() bool
	PackageUUID() string
}

var _ registry.Collector = (*API)(nil)

// API is the instrumentation API for one instrumented package.
//
// All methods are safe for concurrent use.
type API struct {
	m       Manager
	adapter *timing.Adapter

	mu           sync.Mutex
	functions    collection[perftiming.Entry, *functionObserver]
	measurements collection[perftiming.MeasurementEntry, *measurementObserver]
}

// New returns an API owned by m, recording through adapter.
//
// The adapter should be enabled exactly when m is.
func New(m Manager, adapter *timing.Adapter) *API {
	return &API{
		m:       m,
		adapter: adapter,
		functions: collection[perftiming.Entry, *functionObserver]{
			lookup: make(map[string]*functionObserver),
		},
		measurements: collection[perftiming.MeasurementEntry, *measurementObserver]{
			lookup: make(map[string]*measurementObserver),
		},
	}
}

// Enabled reports whether the owning manager is enabled.
func (a *API) Enabled() bool { return a.m.Enabled() }

// Namespace returns the name as recorded on the timeline.
func (a *API) namespace(name string) string {
	return a.m.PackageUUID() + ": " + name
}

// Mark records a named timestamp.
func (a *API) Mark(name string) {
	if !a.m.Enabled() {
		return
	}
	a.adapter.Mark(a.namespace(name))
}

// ClearMarks removes this package's marks with the provided name, or all of
// this package's marks if name is empty. Other packages' marks are never
// affected.
func (a *API) ClearMarks(name string) {
	if !a.m.Enabled() {
		return
	}
	if name == "" {
		a.adapter.ClearMarksPrefix(a.namespace(""))
		return
	}
	a.adapter.ClearMarks(a.namespace(name))
}

// Measure records the duration between two marks made with [API.Mark].
//
// Measurements with the same name accumulate into one metric. An empty
// startMark measures from the timeline origin and an empty endMark to the
// current time.
func (a *API) Measure(name, startMark, endMark string) error {
	if !a.m.Enabled() {
		return nil
	}
	ns := a.namespace(name)
	start, end := startMark, endMark
	if start != "" {
		start = a.namespace(start)
	}
	if end != "" {
		end = a.namespace(end)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	rec := a.measurements.get(name, func() *measurementObserver {
		return new(measurementObserver)
	})
	if !rec.connected {
		// Attach for exactly one delivery; the callback records the batch and
		// anything queued behind it, then detaches.
		rec.obs = a.adapter.Observe(func(es []timing.Entry, o *timing.Observer) {
			a.mu.Lock()
			defer a.mu.Unlock()
			rec.add(es)
			rec.add(o.Disconnect())
			if rec.obs == o {
				rec.obs = nil
				rec.connected = false
			}
		}, timing.ObserveOptions{
			Types: []timing.EntryType{timing.EntryMeasure},
			Name:  ns,
			Once:  true,
		})
		rec.connected = true
	}
	if _, err := a.adapter.Measure(ns, start, end); err != nil {
		return fmt.Errorf("perfapi: measure %q: %w", name, err)
	}
	return nil
}

// Watch returns a function of the same type as fn that records the duration
// of every call under name. The returned value can be type-asserted back to
// fn's type; see also the generic [Watch].
//
// Watching a name that is already watched reports
// [perftiming.ErrTimerNameConflict]. A name may be watched again after it is
// unwatched, and calls accumulate into the same metric.
func (a *API) Watch(fn any, name string) (any, error) {
	const op = `perfapi.Watch`
	if !a.m.Enabled() {
		return fn, nil
	}
	if name == "" {
		return fn, &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrInvalid,
			Message: "a name is required",
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.functions.lookup[name]; ok && rec.connected {
		return fn, &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrConflict,
			Message: fmt.Sprintf("%q is already watched", name),
			Inner:   perftiming.ErrTimerNameConflict,
		}
	}
	ns := a.namespace(name)
	w, err := a.adapter.Timerify(fn, ns)
	if err != nil {
		return fn, fmt.Errorf("perfapi: watch %q: %w", name, err)
	}
	rec := a.functions.get(name, func() *functionObserver {
		return new(functionObserver)
	})
	rec.original = fn
	rec.obs = a.adapter.Observe(func(es []timing.Entry, _ *timing.Observer) {
		a.mu.Lock()
		defer a.mu.Unlock()
		rec.add(es)
	}, timing.ObserveOptions{
		Types: []timing.EntryType{timing.EntryFunction},
		Name:  ns,
	})
	rec.connected = true
	return w, nil
}

// Unwatch stops recording calls under name and returns the function that was
// originally passed to [API.Watch].
//
// Unwatching a name without an active watch reports
// [perftiming.ErrTimerDoesNotExist].
func (a *API) Unwatch(fn any, name string) (any, error) {
	const op = `perfapi.Unwatch`
	if !a.m.Enabled() {
		return fn, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.functions.lookup[name]
	if !ok || !rec.connected {
		return fn, &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrNotFound,
			Message: fmt.Sprintf("no active watch for %q", name),
			Inner:   perftiming.ErrTimerDoesNotExist,
		}
	}
	rec.add(rec.obs.Disconnect())
	rec.obs = nil
	rec.connected = false
	orig := rec.original
	rec.original = nil
	return orig, nil
}

// Watch is a typed wrapper around [API.Watch].
func Watch[F any](a *API, fn F, name string) (F, error) {
	w, err := a.Watch(fn, name)
	if err != nil {
		return fn, err
	}
	return w.(F), nil
}

// Unwatch is a typed wrapper around [API.Unwatch].
func Unwatch[F any](a *API, fn F, name string) (F, error) {
	orig, err := a.Unwatch(fn, name)
	if err != nil {
		return fn, err
	}
	return orig.(F), nil
}

func errNotCaptured(op string) error {
	return &perftiming.Error{
		Op:    op,
		Kind:  perftiming.ErrPrecondition,
		Inner: perftiming.ErrPerformanceNotCaptured,
	}
}

// Metrics reports the aggregated metrics for every watched function and
// measurement name, in the order the names were first used.
//
// Entries still queued for delivery are collected as part of the call.
func (a *API) Metrics() (perftiming.Metrics, error) {
	if !a.m.Enabled() {
		return perftiming.Metrics{}, errNotCaptured(`perfapi.Metrics`)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return perftiming.Metrics{
		Functions:    a.functions.aggregate(),
		Measurements: a.measurements.aggregate(),
	}, nil
}

// ProcessTiming reports process-level timing.
func (a *API) ProcessTiming() (perftiming.ProcessTiming, error) {
	if !a.m.Enabled() {
		return perftiming.ProcessTiming{}, errNotCaptured(`perfapi.ProcessTiming`)
	}
	return a.adapter.ProcessTiming(), nil
}

// SysInfo reports a description of the host.
//
// Host details that cannot be determined are left empty.
func (a *API) SysInfo(ctx context.Context) (perftiming.SystemInformation, error) {
	if !a.m.Enabled() {
		return perftiming.SystemInformation{}, errNotCaptured(`perfapi.SysInfo`)
	}
	info, err := sysinfo.Gather(ctx)
	if err != nil {
		slog.DebugContext(ctx, "partial system information", "reason", err)
	}
	return info, nil
}

// Drain waits for every queued timeline delivery to finish.
func (a *API) Drain(ctx context.Context) error {
	if !a.m.Enabled() {
		return nil
	}
	return a.adapter.Drain(ctx)
}
