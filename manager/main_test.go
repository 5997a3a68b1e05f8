package manager_test

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var (
	metricReader *sdkmetric.ManualReader
	spans        *tracetest.SpanRecorder
)

func TestMain(m *testing.M) {
	var c int
	defer func() { os.Exit(c) }()

	metricReader = sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	otel.SetMeterProvider(mp)
	defer mp.Shutdown(context.Background())

	spans = tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	c = m.Run()
}
