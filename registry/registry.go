// Package registry is the process-wide registry of instrumented packages.
//
// Every enabled manager in a process inserts its instrumentation API here,
// and the main manager ranges over the registry to build the merged
// document. The first manager to call [Registry.Elect] is the main manager.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zowe/perf-timing"
)

// Key identifies one registry entry.
//
// Keys are unique even when their labels are equal, so two packages that
// report the same identity each get their own entry.
type Key struct {
	id    uuid.UUID
	label string
}

// NewKey mints a new Key with the provided label.
func NewKey(label string) Key {
	return Key{id: uuid.New(), label: label}
}

// Label reports the label the Key was minted with.
func (k Key) Label() string { return k.label }

// IsZero reports whether the Key is the zero value.
func (k Key) IsZero() bool { return k.id == uuid.Nil }

// String implements [fmt.Stringer].
func (k Key) String() string {
	return fmt.Sprintf("%s#%s", k.label, k.id)
}

// Collector reports the metrics captured by one instrumented package.
type Collector interface {
	Metrics() (perftiming.Metrics, error)
}

// CollectorFunc adapts a function to a [Collector].
type CollectorFunc func() (perftiming.Metrics, error)

// Metrics implements [Collector].
func (f CollectorFunc) Metrics() (perftiming.Metrics, error) { return f() }

// Entry is one registered Collector.
type Entry struct {
	Key       Key
	Collector Collector
}

// Registry is a set of Collectors in insertion order.
type Registry struct {
	_       noCopy
	mu      sync.RWMutex
	elected bool
	entries []Entry
	lookup  map[Key]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		lookup: make(map[Key]int),
	}
}

var defaultRegistry = sync.OnceValue(New)

// Default returns the process-wide Registry.
func Default() *Registry {
	return defaultRegistry()
}

// Elect reports true to exactly one caller over the Registry's lifetime.
func (r *Registry) Elect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.elected {
		return false
	}
	r.elected = true
	return true
}

var (
	// ErrAlreadyRegistered is returned when a Key is inserted more than once.
	ErrAlreadyRegistered = errors.New("registry: key already registered")
	// ErrBadEntry is returned when a zero Key or nil Collector is inserted.
	ErrBadEntry = errors.New("registry: bad entry")
)

// Insert adds the Collector under the provided Key.
func (r *Registry) Insert(k Key, c Collector) error {
	if k.IsZero() || c == nil {
		return &regErr{key: k, inner: ErrBadEntry}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.lookup[k]; exists {
		return &regErr{key: k, inner: ErrAlreadyRegistered}
	}
	r.lookup[k] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: k, Collector: c})
	return nil
}

// Lookup returns the Collector registered under the Key, if any.
func (r *Registry) Lookup(k Key) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.lookup[k]
	if !ok {
		return nil, false
	}
	return r.entries[i].Collector, true
}

// Entries returns a snapshot of the registered entries in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Range calls f for every entry in insertion order until f returns false.
//
// Range iterates over a snapshot, so f may call back into the Registry.
func (r *Registry) Range(f func(Key, Collector) bool) {
	for _, e := range r.Entries() {
		if !f(e.Key, e.Collector) {
			return
		}
	}
}

// Len reports the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

type regErr struct {
	key   Key
	inner error
}

func (e *regErr) Error() string {
	if e.inner == ErrAlreadyRegistered {
		return fmt.Sprintf("registry: key already registered: %q", e.key.label)
	}
	return fmt.Sprintf("registry: bad entry for %q", e.key.label)
}

func (e *regErr) Is(tgt error) bool {
	return e.inner == ErrAlreadyRegistered && tgt == perftiming.ErrConflict ||
		e.inner == ErrBadEntry && tgt == perftiming.ErrInvalid
}

func (e *regErr) Unwrap() error {
	return e.inner
}

// NoCopy is a trick to get `go vet` to complain about accidental copying.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
