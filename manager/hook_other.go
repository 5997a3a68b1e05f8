//go:build !unix

package manager

import "os"

var terminationSignals = []os.Signal{os.Interrupt}

func raise(os.Signal) {
	os.Exit(1)
}
