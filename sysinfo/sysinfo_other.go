//go:build !linux

package sysinfo

import (
	"context"
	"runtime"

	"github.com/zowe/perf-timing"
)

func gatherOS(_ context.Context, info *perftiming.SystemInformation) error {
	info.OS = osString(runtime.GOOS, runtime.GOARCH, "")
	info.CPUs = make([]perftiming.CPU, runtime.NumCPU())
	return nil
}
