package log

import (
	"context"
	"log/slog"
)

// WrapHandler returns a handler that adds the attributes stored in a record's
// Context (see [With]) before passing it to next.
//
// A level stored with [WithLevel] lowers the threshold for records logged
// with that Context; next's own threshold still applies to everything else.
func WrapHandler(next slog.Handler) slog.Handler {
	return ctxHandler{next: next}
}

var _ slog.Handler = ctxHandler{}

type ctxHandler struct {
	next slog.Handler
}

// ContextLevel reports the minimum level stored in ctx, if any.
func contextLevel(ctx context.Context) (slog.Level, bool) {
	l, ok := ctx.Value(LevelKey).(slog.Leveler)
	if !ok {
		return 0, false
	}
	return l.Level(), true
}

// Enabled implements [slog.Handler].
func (h ctxHandler) Enabled(ctx context.Context, l slog.Level) bool {
	if floor, ok := contextLevel(ctx); ok && l >= floor {
		return true
	}
	return h.next.Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(AttrsKey).(slog.Value); ok {
		r.AddAttrs(v.Group()...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{next: h.next.WithGroup(name)}
}
