// Package log holds the context-carried logging helpers used across
// perf-timing.
//
// Library code only ever logs through the [log/slog] default logger using the
// "Context" variants of its functions. Attributes that identify the
// instrumented package travel in the [context.Context] and are attached to
// records by a handler wrapped with [WrapHandler].
package log

import (
	"context"
	"log/slog"
	"slices"
)

// Ctxkey is a Context key type.
//
// This is unexported so that other packages cannot construct these values.
type ctxkey int

const (
	_ ctxkey = iota

	// AttrsKey is used with [context.Context.Value] to retrieve extra logging
	// information for [slog.Record] values produced by perf-timing packages.
	//
	// The value returned will be a [slog.Value] of kind "Group" if present.
	AttrsKey

	// LevelKey is used with [context.Context.Value] to retrieve a per-record
	// minimum [slog.Level].
	LevelKey
)

// Attribute keys set by perf-timing.
const (
	// PackageKey identifies the instrumented package a record concerns.
	PackageKey = "package"
	// EntryKey identifies the registry entry being collected.
	EntryKey = "entry"
)

// With returns a context with the arguments stored as [slog.Attr] at
// [AttrsKey].
//
// Arguments are interpreted as by [slog.Logger.Log].
func With(ctx context.Context, args ...any) context.Context {
	return WithAttr(ctx, slog.Group("", args...).Value.Group()...)
}

// WithEntry returns a context tagged with the label of a registry entry.
func WithEntry(ctx context.Context, label string) context.Context {
	return WithAttr(ctx, slog.String(EntryKey, label))
}

// WithPackage returns a context tagged with the identity of an instrumented
// package.
func WithPackage(ctx context.Context, id string) context.Context {
	return WithAttr(ctx, slog.String(PackageKey, id))
}

// WithAttr returns a context with the arguments stored at [AttrsKey].
//
// Later attributes replace earlier ones with the same key.
func WithAttr(ctx context.Context, attrs ...slog.Attr) context.Context {
	if v, ok := ctx.Value(AttrsKey).(slog.Value); ok {
		attrs = append(v.Group(), attrs...)
	}
	seen := make(map[string]struct{}, len(attrs))
	del := func(a slog.Attr) bool {
		_, rm := seen[a.Key]
		seen[a.Key] = struct{}{}
		return rm || (a.Value.Kind() == slog.KindGroup && len(a.Value.Group()) == 0)
	}
	slices.Reverse(attrs)
	attrs = slices.DeleteFunc(attrs, del)
	slices.Reverse(attrs)

	return context.WithValue(ctx, AttrsKey, slog.GroupValue(attrs...))
}

// WithLevel returns a context with the [slog.Leveler] stored at [LevelKey].
func WithLevel(ctx context.Context, l slog.Leveler) context.Context {
	return context.WithValue(ctx, LevelKey, l)
}
