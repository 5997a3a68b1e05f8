// Package test holds helpers shared by perf-timing's tests.
package test

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zowe/perf-timing/log"
)

// The default logger is replaced once per test binary. It looks up the
// per-test handler stored by Logging and discards records when there is none.
var installDefault = sync.OnceFunc(func() {
	slog.SetDefault(slog.New(log.WrapHandler(router(nil))))
})

type handlerKey struct{}

// Router forwards to the handler found in the record's Context. WithAttrs and
// WithGroup calls are replayed onto that handler when a record is handled.
type router []func(slog.Handler) slog.Handler

var _ slog.Handler = router(nil)

func (r router) target(ctx context.Context) (slog.Handler, bool) {
	h, ok := ctx.Value(handlerKey{}).(slog.Handler)
	return h, ok
}

// Enabled implements [slog.Handler].
func (r router) Enabled(ctx context.Context, l slog.Level) bool {
	h, ok := r.target(ctx)
	return ok && h.Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (r router) Handle(ctx context.Context, rec slog.Record) error {
	h, ok := r.target(ctx)
	if !ok {
		return nil
	}
	for _, f := range r {
		h = f(h)
	}
	return h.Handle(ctx, rec)
}

// WithAttrs implements [slog.Handler].
func (r router) WithAttrs(attrs []slog.Attr) slog.Handler {
	return append(r[:len(r):len(r)], func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements [slog.Handler].
func (r router) WithGroup(name string) slog.Handler {
	return append(r[:len(r):len(r)], func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// Logging returns a Context that sends everything logged through the default
// [slog.Logger] with it to the test's output, at debug level.
//
// The optional parent is used in place of [context.Background].
func Logging(t testing.TB, parent ...context.Context) context.Context {
	installDefault()
	ctx := context.Background()
	if len(parent) > 0 {
		ctx = parent[0]
	}
	start := time.Now()
	h := slog.NewTextHandler(t.Output(), &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) != 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, "+"+time.Since(start).String())
			case slog.SourceKey:
				src, ok := a.Value.Any().(*slog.Source)
				if !ok {
					return a
				}
				dir, file := filepath.Split(src.File)
				return slog.String(slog.SourceKey, fmt.Sprintf("%s/%s:%d", filepath.Base(dir), file, src.Line))
			}
			return a
		},
	})
	return context.WithValue(ctx, handlerKey{}, h)
}
