//go:build unix

package manager

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var terminationSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

// Raise re-delivers the signal to this process. The handler has already been
// removed, so the default disposition applies.
func raise(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		os.Exit(1)
	}
	if err := unix.Kill(unix.Getpid(), s); err != nil {
		os.Exit(128 + int(s))
	}
}
