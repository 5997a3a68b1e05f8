package timing

import (
	"context"
	"slices"
)

// Callback receives a batch of entries for an Observer.
//
// Callbacks run on the timeline's dispatch goroutine, never on the goroutine
// that recorded the entries. A Callback must not call [Timeline.Drain].
type Callback func(entries []Entry, o *Observer)

// ObserveOptions selects which entries an Observer receives.
type ObserveOptions struct {
	// Types restricts delivery to the listed entry types. Empty means all
	// types.
	Types []EntryType
	// Name restricts delivery to entries with exactly this name.
	Name string
	// Once disconnects the Observer after its first delivered batch. Entries
	// recorded while that batch is being handled are held until the Observer
	// is disconnected and returned from [Observer.Disconnect].
	Once bool
	// Buffered queues matching entries already buffered on the timeline.
	Buffered bool
}

// Observer is a subscription to new timeline entries.
type Observer struct {
	t    *Timeline
	cb   Callback
	opts ObserveOptions

	// Guarded by t.mu.
	buf       []Entry
	scheduled bool
	delivered bool
	detached  bool
}

// Observe subscribes cb to entries recorded from now on.
//
// Observing a closed Timeline returns an already disconnected Observer.
func (t *Timeline) Observe(cb Callback, opts ObserveOptions) *Observer {
	o := &Observer{
		t:    t,
		cb:   cb,
		opts: opts,
	}
	o.opts.Types = slices.Clone(opts.Types)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		o.detached = true
		return o
	}
	if !t.started {
		t.started = true
		go t.dispatch()
	}
	t.observers = append(t.observers, o)
	if opts.Buffered {
		for _, e := range t.entries {
			if o.matches(e) {
				o.buf = append(o.buf, e)
			}
		}
		if len(o.buf) != 0 {
			t.scheduleLocked(o)
		}
	}
	return o
}

func (o *Observer) matches(e Entry) bool {
	if o.opts.Name != "" && o.opts.Name != e.Name {
		return false
	}
	return len(o.opts.Types) == 0 || slices.Contains(o.opts.Types, e.Type)
}

// Disconnect stops delivery to the Observer and returns any entries that were
// queued for it but not yet delivered.
//
// Disconnect, TakeRecords and Connected may be called on a nil Observer.
func (o *Observer) Disconnect() []Entry {
	if o == nil {
		return nil
	}
	t := o.t
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked(o)
	out := o.buf
	o.buf = nil
	return out
}

// TakeRecords returns and clears the entries queued for the Observer without
// disconnecting it.
func (o *Observer) TakeRecords() []Entry {
	if o == nil {
		return nil
	}
	t := o.t
	t.mu.Lock()
	defer t.mu.Unlock()
	out := o.buf
	o.buf = nil
	return out
}

// Connected reports whether the Observer is still subscribed.
func (o *Observer) Connected() bool {
	if o == nil {
		return false
	}
	t := o.t
	t.mu.Lock()
	defer t.mu.Unlock()
	return !o.detached
}

func (t *Timeline) detachLocked(o *Observer) {
	if o.detached {
		return
	}
	o.detached = true
	t.observers = slices.DeleteFunc(t.observers, func(x *Observer) bool { return x == o })
}

// ScheduleLocked queues o for delivery. The caller must hold t.mu.
func (t *Timeline) scheduleLocked(o *Observer) {
	if t.closed || o.scheduled || o.detached || (o.opts.Once && o.delivered) {
		return
	}
	o.scheduled = true
	t.pending.Add(o)
	t.cond.Broadcast()
}

func (t *Timeline) dispatch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		for t.pending.Length() == 0 && !t.closed {
			t.cond.Wait()
		}
		if t.pending.Length() == 0 {
			return
		}
		o := t.pending.Remove().(*Observer)
		o.scheduled = false
		if o.detached || len(o.buf) == 0 {
			t.cond.Broadcast()
			continue
		}
		batch := o.buf
		o.buf = nil
		if o.opts.Once {
			o.delivered = true
		}
		t.inflight++
		t.mu.Unlock()
		o.deliver(batch)
		t.mu.Lock()
		t.inflight--
		if o.opts.Once {
			t.detachLocked(o)
		}
		t.cond.Broadcast()
	}
}

// Deliver runs the callback, keeping a panicking callback from taking down
// the dispatch goroutine.
func (o *Observer) deliver(batch []Entry) {
	defer func() {
		_ = recover()
	}()
	o.cb(batch, o)
}

// Drain blocks until every queued batch has been delivered and every running
// callback has returned, or ctx is done.
func (t *Timeline) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.cond.Broadcast()
	})
	defer stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	for t.pending.Length() != 0 || t.inflight != 0 {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		t.cond.Wait()
	}
	return nil
}

// Close stops the dispatch goroutine once queued batches are delivered.
// Entries recorded after Close are still buffered but no longer delivered.
func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cond.Broadcast()
}
