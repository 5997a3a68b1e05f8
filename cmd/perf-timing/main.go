// Perf-timing inspects the documents written by enabled perf-timing managers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/log"
)

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer done()

	slog.SetDefault(slog.New(log.WrapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))))

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exit = 1
		if errors.Is(err, perftiming.ErrNotFound) {
			exit = 2
		}
	}
}
