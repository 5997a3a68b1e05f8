package environment

import (
	"fmt"

	"github.com/zowe/perf-timing"
)

// DuplicateKeyError is reported when a key is registered more than once.
type DuplicateKeyError struct {
	Key       string
	Existing  any
	Attempted any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("environment: key %q already registered with default %#v (attempted %#v)",
		e.Key, e.Existing, e.Attempted)
}

// Unwrap returns [perftiming.ErrDuplicateKey].
func (e *DuplicateKeyError) Unwrap() error { return perftiming.ErrDuplicateKey }

// NotRegisteredError is reported when an unregistered key is read.
type NotRegisteredError struct {
	Key string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("environment: key %q is not registered", e.Key)
}

// Unwrap returns [perftiming.ErrNotRegistered].
func (e *NotRegisteredError) Unwrap() error { return perftiming.ErrNotRegistered }

// TypeMismatchError is reported when a typed accessor is used on a key whose
// registered default is of another type.
type TypeMismatchError struct {
	Key        string
	Want       string
	Registered string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("environment: key %q: requested %s but registered default is a %s",
		e.Key, e.Want, e.Registered)
}

// Unwrap returns [perftiming.ErrTypeMismatch].
func (e *TypeMismatchError) Unwrap() error { return perftiming.ErrTypeMismatch }
