// Package identity determines the "name@version" identity that namespaces an
// instrumented package's timing data.
package identity

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/Masterminds/semver"

	"github.com/zowe/perf-timing"
)

// ModulePath is the module path of perf-timing itself.
const ModulePath = `github.com/zowe/perf-timing`

// Provider reports the identity of an instrumented package.
type Provider interface {
	Identity() (string, error)
}

// ProviderFunc adapts a function to a [Provider].
type ProviderFunc func() (string, error)

// Identity implements [Provider].
func (f ProviderFunc) Identity() (string, error) { return f() }

// Static is a fixed identity.
type Static string

// Identity implements [Provider].
func (s Static) Identity() (string, error) {
	if s == "" {
		return "", &perftiming.Error{
			Op:      `identity.Static`,
			Kind:    perftiming.ErrInvalid,
			Message: "empty identity",
		}
	}
	return string(s), nil
}

// Caller returns a Provider for the module containing the function that
// called Caller, skipping skip additional frames. The frame is captured
// immediately; resolution happens when Identity is called.
//
// The module is found in the program's build information, so the identity is
// the module path and its version as recorded by the go tool.
func Caller(skip int) Provider {
	pc, _, _, ok := runtime.Caller(skip + 1)
	return ProviderFunc(func() (string, error) {
		const op = `identity.Caller`
		if !ok {
			return "", &perftiming.Error{
				Op:      op,
				Kind:    perftiming.ErrNotFound,
				Message: "unable to determine caller",
			}
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			return "", &perftiming.Error{
				Op:      op,
				Kind:    perftiming.ErrNotFound,
				Message: fmt.Sprintf("no function for pc %#x", pc),
			}
		}
		return forFunc(op, fn.Name())
	})
}

// Self returns the identity of perf-timing itself.
//
// This is the fallback identity used when an instrumented package's identity
// cannot be determined.
func Self() string {
	return self()
}

// Marker gives Self a symbol whose package path is known without referring
// back to Self.
type marker struct{}

var self = sync.OnceValue(func() string {
	id, err := forFunc(`identity.Self`, reflect.TypeFor[marker]().PkgPath()+".marker")
	if err != nil {
		return ModulePath
	}
	return id
})

var buildInfo = sync.OnceValues(func() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
})

// ForFunc resolves the module that the fully-qualified function name belongs
// to.
func forFunc(op, name string) (string, error) {
	info, ok := buildInfo()
	if !ok {
		return "", &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrNotFound,
			Message: "no build information",
		}
	}
	return resolve(op, info, name)
}

// Resolve finds the module in info containing the named function. Functions
// in package main belong to the main module; everything else goes to the
// longest module path that prefixes the name.
func resolve(op string, info *debug.BuildInfo, name string) (string, error) {
	if strings.HasPrefix(name, "main.") && info.Main.Path != "" {
		return Format(info.Main.Path, info.Main.Version), nil
	}
	var best *debug.Module
	consider := func(m *debug.Module) {
		if m == nil || m.Path == "" || !inModule(name, m.Path) {
			return
		}
		if best == nil || len(m.Path) > len(best.Path) {
			best = m
		}
	}
	consider(&info.Main)
	for _, m := range info.Deps {
		consider(m)
	}
	if best == nil {
		return "", &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrNotFound,
			Message: fmt.Sprintf("no module contains %q", name),
		}
	}
	v := best.Version
	if best.Replace != nil && best.Replace.Version != "" {
		v = best.Replace.Version
	}
	return Format(best.Path, v), nil
}

// InModule reports whether the function name is declared in a package
// within the module path.
func inModule(name, mod string) bool {
	rest, ok := strings.CutPrefix(name, mod)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == '/' || rest[0] == '.'
}

// Format returns the identity for the provided module path and version.
//
// Versions that parse as semantic versions are normalized to the "v"-prefixed
// form Go uses; anything else, such as "(devel)", is kept as-is. An empty
// version yields just the path.
func Format(path, version string) string {
	if version == "" {
		return path
	}
	if v, err := semver.NewVersion(version); err == nil {
		return path + "@v" + v.String()
	}
	return path + "@" + version
}

// Parse splits an identity into its name and version. The version is empty
// if the identity doesn't have one.
func Parse(id string) (name, version string, err error) {
	name, version = id, ""
	if i := strings.LastIndexByte(id, '@'); i >= 0 {
		name, version = id[:i], id[i+1:]
	}
	if name == "" {
		return "", "", &perftiming.Error{
			Op:      `identity.Parse`,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("malformed identity %q", id),
		}
	}
	return name, version, nil
}
