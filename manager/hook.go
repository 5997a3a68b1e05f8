package manager

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"
)

// DefaultFlushTimeout bounds how long [SignalHook] waits for a flush.
const DefaultFlushTimeout = 10 * time.Second

// SignalHook flushes when the process receives one of its signals, then
// delivers the signal again with the default disposition so the process
// stops the way it would have without the hook.
//
// Go has no hook for a normal return from main, so programs that exit on
// their own must call [Manager.Flush] themselves.
type SignalHook struct {
	// Signals to flush on. If empty, the platform's termination signals are
	// used.
	Signals []os.Signal
	// Timeout bounds the flush. If zero, DefaultFlushTimeout is used. A
	// flush still running at the deadline is abandoned and the signal is
	// delivered anyway.
	Timeout time.Duration
}

// DefaultSignalHook returns a SignalHook for the platform's termination
// signals.
func DefaultSignalHook() *SignalHook {
	return &SignalHook{}
}

// Install implements [ExitHook].
func (h *SignalHook) Install(flush func(context.Context) error) {
	sigs := h.Signals
	if len(sigs) == 0 {
		sigs = terminationSignals
	}
	timeout := h.Timeout
	if timeout == 0 {
		timeout = DefaultFlushTimeout
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		sig := <-ch
		signal.Stop(ch)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- flush(ctx) }()
		select {
		case err := <-done:
			if err != nil {
				slog.WarnContext(ctx, "flush on signal failed", "signal", sig, "reason", err)
			}
		case <-ctx.Done():
			slog.WarnContext(ctx, "flush on signal abandoned", "signal", sig, "timeout", timeout)
		}
		raise(sig)
	}()
}
