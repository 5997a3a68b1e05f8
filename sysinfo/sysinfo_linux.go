package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/zowe/perf-timing"
)

func gatherOS(_ context.Context, info *perftiming.SystemInformation) error {
	var errs []error

	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		errs = append(errs, fmt.Errorf("sysinfo: uname: %w", err))
		info.OS = osString("Linux", runtime.GOARCH, "")
	} else {
		info.OS = osString(
			unix.ByteSliceToString(u.Sysname[:]),
			unix.ByteSliceToString(u.Machine[:]),
			unix.ByteSliceToString(u.Release[:]),
		)
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("sysinfo: procfs: %w", err))...)
	}

	if cpus, err := fs.CPUInfo(); err != nil {
		errs = append(errs, fmt.Errorf("sysinfo: cpuinfo: %w", err))
	} else {
		info.CPUs = make([]perftiming.CPU, len(cpus))
		for i, c := range cpus {
			info.CPUs[i] = perftiming.CPU{Model: c.ModelName, Speed: c.CPUMHz}
		}
	}

	if l, err := fs.LoadAvg(); err != nil {
		errs = append(errs, fmt.Errorf("sysinfo: loadavg: %w", err))
	} else {
		info.LoadAvg = [3]float64{l.Load1, l.Load5, l.Load15}
	}

	if m, err := fs.Meminfo(); err != nil {
		errs = append(errs, fmt.Errorf("sysinfo: meminfo: %w", err))
	} else {
		// Meminfo reports kB.
		if m.MemTotal != nil {
			info.Memory.Total = *m.MemTotal * 1024
		}
		switch {
		case m.MemAvailable != nil:
			info.Memory.Free = *m.MemAvailable * 1024
		case m.MemFree != nil:
			info.Memory.Free = *m.MemFree * 1024
		}
	}

	if st, err := fs.Stat(); err != nil {
		errs = append(errs, fmt.Errorf("sysinfo: stat: %w", err))
	} else {
		boot := time.Unix(int64(st.BootTime), 0)
		info.Uptime = time.Since(boot).Seconds()
	}

	return errors.Join(errs...)
}
