package perftiming

import (
	"errors"
	"strings"
)

// Error is the perf-timing error domain type.
//
// Errors coming from perf-timing components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain.
//
// Components create an Error at the point a caller-visible failure is decided
// (a bad registration, a timer conflict, reading data while disabled) and
// intermediate layers use [fmt.Errorf] with a "%w" verb instead of wrapping in
// another Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
//
// The format is "<op> [<kind>]: <message>: <inner>". An Error with neither
// an Op nor a Message reports only its Inner error.
func (e *Error) Error() string {
	if e.Op == "" && e.Message == "" && e.Inner != nil {
		return e.Inner.Error()
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op + " ")
	}
	b.WriteString("[" + e.Kind.label() + "]")
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Inner != nil {
		b.WriteString(": " + e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] or one of the sentinel errors over a specific error.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
//
// If an error is unsure which kind to use, ErrInternal should be used.
type ErrorKind string

// Defined error kinds.
var (
	ErrConflict     = ErrorKind("conflict")     // conflicting action
	ErrInternal     = ErrorKind("internal")     // non-specific internal error
	ErrInvalid      = ErrorKind("invalid")      // invalid request
	ErrNotFound     = ErrorKind("not found")    // named object does not exist
	ErrPrecondition = ErrorKind("precondition") // some precondition unfulfilled
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}

// Label is the kind as printed by [Error.Error]. Kinds not declared in this
// package print as "???".
func (e ErrorKind) label() string {
	switch e {
	case ErrConflict, ErrInternal, ErrInvalid, ErrNotFound, ErrPrecondition:
		return string(e)
	}
	return "???"
}

// Sentinel errors for the specific failures callers are expected to handle.
//
// These are reported as the Inner member of an [*Error], so both the kind and
// the sentinel can be checked with [errors.Is].
var (
	// ErrDuplicateKey is reported when an environment key is registered twice.
	ErrDuplicateKey = errors.New("environment key already registered")
	// ErrNotRegistered is reported when an unregistered environment key is read.
	ErrNotRegistered = errors.New("environment key not registered")
	// ErrTypeMismatch is reported when a typed accessor does not match the
	// type of the registered default.
	ErrTypeMismatch = errors.New("environment key type mismatch")

	// ErrTimerNameConflict is reported when a name is watched while a watch
	// for that name is active.
	ErrTimerNameConflict = errors.New("timer name conflict")
	// ErrTimerDoesNotExist is reported when a name without an active watch is
	// unwatched.
	ErrTimerDoesNotExist = errors.New("timer does not exist")
	// ErrPerformanceNotCaptured is reported when captured data is read while
	// performance capture is disabled.
	ErrPerformanceNotCaptured = errors.New("performance metrics were not captured")
)
