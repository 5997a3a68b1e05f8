// Package promexport exposes live perf-timing aggregates as Prometheus
// metrics.
//
// The exported values are read from the registry at scrape time, so they
// reflect everything delivered to each instrumentation API so far.
package promexport

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zowe/perf-timing/registry"
)

const namespace = "perf_timing"

// Metric kinds used for the "kind" label.
const (
	KindFunction    = "function"
	KindMeasurement = "measurement"
)

var (
	labels    = []string{"package", "kind", "name"}
	callsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "calls_total"),
		"Number of captured entries for a watched function or measurement.",
		labels, nil,
	)
	durationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "duration_milliseconds_total"),
		"Total duration of captured entries for a watched function or measurement.",
		labels, nil,
	)

	collectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "collect_failures_total",
		Help:      "Registry entries whose metrics could not be read during a scrape.",
	}, []string{"package"})
)

// Collector is a [prometheus.Collector] over a registry.
type Collector struct {
	reg *registry.Registry
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector reading from reg.
func NewCollector(reg *registry.Registry) *Collector {
	return &Collector{reg: reg}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- callsDesc
	ch <- durationDesc
}

type series struct {
	pkg, kind, name string
}

type totals struct {
	calls    int
	duration float64
}

// Collect implements [prometheus.Collector].
//
// Entries sharing a package identity are summed into one series per name.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var order []series
	sum := make(map[series]*totals)
	add := func(s series, calls int, d float64) {
		t, ok := sum[s]
		if !ok {
			t = new(totals)
			sum[s] = t
			order = append(order, s)
		}
		t.calls += calls
		t.duration += d
	}

	for _, e := range c.reg.Entries() {
		pkg := e.Key.Label()
		m, err := metrics(e.Collector)
		if err != nil {
			collectFailures.WithLabelValues(pkg).Inc()
			ch <- prometheus.NewInvalidMetric(callsDesc, fmt.Errorf("package %q: %w", pkg, err))
			continue
		}
		for _, f := range m.Functions {
			add(series{pkg, KindFunction, f.Name}, f.Calls, f.TotalDuration)
		}
		for _, ms := range m.Measurements {
			add(series{pkg, KindMeasurement, ms.Name}, ms.Calls, ms.TotalDuration)
		}
	}

	for _, s := range order {
		t := sum[s]
		ch <- prometheus.MustNewConstMetric(callsDesc, prometheus.CounterValue, float64(t.calls), s.pkg, s.kind, s.name)
		ch <- prometheus.MustNewConstMetric(durationDesc, prometheus.CounterValue, t.duration, s.pkg, s.kind, s.name)
	}
}
