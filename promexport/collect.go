package promexport

import (
	"fmt"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/registry"
)

// Metrics reads a Collector, turning a panic into an error.
func metrics(c registry.Collector) (m perftiming.Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panicked: %v", r)
		}
	}()
	return c.Metrics()
}
