package timing

import (
	"runtime"
	"sync"
	"time"

	"github.com/zowe/perf-timing"
)

var initTime = time.Now()

// ProcessStart reports when the current process started. Platforms without a
// way to ask fall back to the time this package was initialized, as do
// answers that are later than that (the kernel's boot time is only reported
// to the second).
var processStart = sync.OnceValue(func() time.Time {
	if t, ok := osProcessStart(); ok && !t.After(initTime) {
		return t
	}
	return initTime
})

// ProcessTiming returns a snapshot of process-level timing relative to the
// process start.
func (t *Timeline) ProcessTiming() perftiming.ProcessTiming {
	start := processStart()
	now := time.Now()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return perftiming.ProcessTiming{
		Name:          "process",
		StartTime:     0,
		Duration:      millis(now.Sub(start)),
		ProcessStart:  float64(start.UnixNano()) / 1e6,
		RuntimeInit:   millis(initTime.Sub(start)),
		TimelineStart: millis(t.origin.Sub(start)),
		Goroutines:    runtime.NumGoroutine(),
		NumGC:         ms.NumGC,
		GCPauseTotal:  float64(ms.PauseTotalNs) / 1e6,
	}
}
