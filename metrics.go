package perftiming

import (
	"encoding/json"
	"math"
)

// Entry is a single captured timing entry.
//
// Times are in milliseconds relative to the origin of the timeline that
// produced the entry.
type Entry struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

// Timing implements [Timed].
func (e Entry) Timing() Entry { return e }

// MeasurementEntry is an Entry produced by a measure call, along with the
// marks it was measured between.
type MeasurementEntry struct {
	Entry
	StartMark string `json:"startMarkName"`
	EndMark   string `json:"endMarkName"`
}

// Timed is the constraint for values that can be aggregated into a [Metric].
type Timed interface {
	Timing() Entry
}

// Metric is the aggregated view of all entries captured under one name.
//
// AverageDuration is NaN when no entries were captured. This is reported as
// "null" in JSON.
type Metric[T Timed] struct {
	Name            string
	Calls           int
	TotalDuration   float64
	AverageDuration float64
	Entries         []T
}

// NewMetric aggregates the provided entries into a Metric.
//
// The entries slice is retained, not copied.
func NewMetric[T Timed](name string, entries []T) Metric[T] {
	var total float64
	for _, e := range entries {
		total += e.Timing().Duration
	}
	return Metric[T]{
		Name:            name,
		Calls:           len(entries),
		TotalDuration:   total,
		AverageDuration: total / float64(len(entries)),
		Entries:         entries,
	}
}

type metricJSON[T Timed] struct {
	Name            string   `json:"name"`
	Calls           int      `json:"calls"`
	TotalDuration   float64  `json:"totalDuration"`
	AverageDuration *float64 `json:"averageDuration"`
	Entries         []T      `json:"entries"`
}

// MarshalJSON implements [json.Marshaler].
func (m Metric[T]) MarshalJSON() ([]byte, error) {
	out := metricJSON[T]{
		Name:          m.Name,
		Calls:         m.Calls,
		TotalDuration: m.TotalDuration,
		Entries:       m.Entries,
	}
	if !math.IsNaN(m.AverageDuration) && !math.IsInf(m.AverageDuration, 0) {
		avg := m.AverageDuration
		out.AverageDuration = &avg
	}
	if out.Entries == nil {
		out.Entries = []T{}
	}
	return json.Marshal(&out)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (m *Metric[T]) UnmarshalJSON(b []byte) error {
	var in metricJSON[T]
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	m.Name = in.Name
	m.Calls = in.Calls
	m.TotalDuration = in.TotalDuration
	m.AverageDuration = math.NaN()
	if in.AverageDuration != nil {
		m.AverageDuration = *in.AverageDuration
	}
	m.Entries = in.Entries
	return nil
}

// FunctionMetric is the aggregate for a watched function.
type FunctionMetric = Metric[Entry]

// MeasurementMetric is the aggregate for a measurement name.
type MeasurementMetric = Metric[MeasurementEntry]

// Metrics is everything captured by one instrumentation API instance.
//
// Both slices are in the order names were first used.
type Metrics struct {
	Functions    []FunctionMetric    `json:"functions"`
	Measurements []MeasurementMetric `json:"measurements"`
}
