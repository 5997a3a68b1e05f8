// Package perftiming holds the shared types for perf-timing, an opt-in
// performance timing library that can be linked into many packages of one
// program at once.
//
// Each package that wants timing data constructs its own manager (see the
// manager package). Managers are only active when the PERF_TIMING_ENABLED
// environment variable is "true" (case-insensitive). Active managers share a
// single process-wide registry; the first one constructed becomes the main
// manager and is responsible for collecting every registered instance's
// metrics and persisting them as one [Document] when the program shuts down.
//
// Names used for marks, measures and watched functions are namespaced by the
// owning package's identity, so unrelated packages may use the same names
// without their captures aliasing.
package perftiming
