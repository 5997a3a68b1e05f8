// Package environment is a typed registry of environment-variable backed
// settings.
//
// Every setting must be registered with a default before it can be read. Reads
// consult the live environment first and fall back to the registered default
// when the variable is unset or empty.
package environment

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/zowe/perf-timing"
)

// Prefix is prepended to every perf-timing environment variable.
const Prefix = "PERF_TIMING"

// LookupFunc reports the live value of an environment variable.
type LookupFunc func(key string) (string, bool)

// Registry maps keys to registered defaults.
//
// Registry is safe for concurrent use.
type Registry struct {
	lookup LookupFunc
	mu     *sync.RWMutex
	defs   map[string]any
}

// Option configures a Registry.
type Option func(*Registry)

// WithLookup sets the function used to read live values. The default is
// [os.LookupEnv].
func WithLookup(f LookupFunc) Option {
	return func(r *Registry) { r.lookup = f }
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		lookup: os.LookupEnv,
		mu:     new(sync.RWMutex),
		defs:   make(map[string]any),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry { return New() })

// Default returns the process-wide Registry.
//
// Packages register their keys into it from init functions.
func Default() *Registry {
	return defaultRegistry()
}

// Overlay returns a Registry sharing r's registrations but reading live values
// through "lookup".
//
// Registrations made through either Registry are visible in both.
func (r *Registry) Overlay(lookup LookupFunc) *Registry {
	return &Registry{
		lookup: lookup,
		mu:     r.mu,
		defs:   r.defs,
	}
}

// Register records the default for key.
//
// The default must be a string or a numeric type; numbers are stored as
// float64. Registering a key twice reports a *DuplicateKeyError and leaves the
// first default in place.
func (r *Registry) Register(key string, def any) error {
	const op = `environment.Register`
	v, err := normalize(def)
	if err != nil {
		return &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("key %q", key),
			Inner:   err,
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.defs[key]; ok {
		return &perftiming.Error{
			Op:    op,
			Kind:  perftiming.ErrConflict,
			Inner: &DuplicateKeyError{Key: key, Existing: prev, Attempted: v},
		}
	}
	r.defs[key] = v
	return nil
}

// MustRegister is like [Registry.Register] but panics on error.
//
// It's meant for use in init functions.
func (r *Registry) MustRegister(key string, def any) {
	if err := r.Register(key, def); err != nil {
		panic(err)
	}
}

// Keys reports the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ks := make([]string, 0, len(r.defs))
	for k := range r.defs {
		ks = append(ks, k)
	}
	slices.Sort(ks)
	return ks
}

// Value returns the live value for key if it is set and non-empty, or the
// registered default otherwise.
//
// The returned value is a string when taken from the environment, and the
// default's type (string or float64) otherwise.
func (r *Registry) Value(key string) (any, error) {
	def, err := r.registered(`environment.Value`, key, "")
	if err != nil {
		return nil, err
	}
	if v, ok := r.lookup(key); ok && v != "" {
		return v, nil
	}
	return def, nil
}

// Number returns the value for key as a number.
//
// The registered default must be numeric. A live value that does not parse as
// a number, or parses as NaN, is ignored in favor of the default.
func (r *Registry) Number(key string) (float64, error) {
	def, err := r.registered(`environment.Number`, key, kindNumber)
	if err != nil {
		return 0, err
	}
	n := def.(float64)
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return n, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) {
		return n, nil
	}
	return f, nil
}

// String returns the value for key as a string.
//
// The registered default must be a string.
func (r *Registry) String(key string) (string, error) {
	def, err := r.registered(`environment.String`, key, kindString)
	if err != nil {
		return "", err
	}
	if v, ok := r.lookup(key); ok && v != "" {
		return v, nil
	}
	return def.(string), nil
}

const (
	kindString = "string"
	kindNumber = "number"
)

// Registered returns the default for key, checking that it exists and, if
// "want" is not empty, that it is of the named kind.
func (r *Registry) registered(op, key, want string) (any, error) {
	r.mu.RLock()
	def, ok := r.defs[key]
	r.mu.RUnlock()
	if !ok {
		return nil, &perftiming.Error{
			Op:    op,
			Kind:  perftiming.ErrNotFound,
			Inner: &NotRegisteredError{Key: key},
		}
	}
	if want != "" {
		if got := kindOf(def); got != want {
			return nil, &perftiming.Error{
				Op:    op,
				Kind:  perftiming.ErrInvalid,
				Inner: &TypeMismatchError{Key: key, Want: want, Registered: got},
			}
		}
	}
	return def, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case string:
		return kindString
	case float64:
		return kindNumber
	}
	return fmt.Sprintf("%T", v)
}

// Normalize converts a default to its stored form.
func normalize(def any) (any, error) {
	if s, ok := def.(string); ok {
		return s, nil
	}
	v := reflect.ValueOf(def)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return nil, fmt.Errorf("unsupported default type %T: want a string or number", def)
}
