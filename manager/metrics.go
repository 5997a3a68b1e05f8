package manager

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter  = otel.Meter("github.com/zowe/perf-timing/manager")
	tracer = otel.Tracer("github.com/zowe/perf-timing/manager")
)

var (
	flushCount = must(meter.Int64Counter("perftiming.flush.count",
		metric.WithUnit("{flush}"),
		metric.WithDescription(`Reports the number of merged documents flushed by the main manager.`)))
	collectDuration = must(meter.Float64Histogram("perftiming.collect.duration",
		metric.WithUnit("ms"),
		metric.WithDescription(`Reports the time taken to build a merged document.`)))
	collectEntries = must(meter.Int64Counter("perftiming.collect.entries",
		metric.WithUnit("{entry}"),
		metric.WithDescription(`Reports the number of registry entries collected, by outcome.`)))
)

var (
	resultKey = attribute.Key("result")

	resultOK    = attribute.NewSet(resultKey.String("ok"))
	resultError = attribute.NewSet(resultKey.String("error"))
)

// Must returns the value if the error is not nil, panicking otherwise.
func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}
