package manager

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/history"
	"github.com/zowe/perf-timing/log"
	"github.com/zowe/perf-timing/registry"
)

// Drainer is implemented by Collectors that receive entries asynchronously
// and can wait for pending deliveries.
type drainer interface {
	Drain(context.Context) error
}

// Collect builds the merged document from every entry in the Manager's
// registry.
//
// This Manager's own process timing and system information are taken first,
// so the snapshot isn't skewed by collecting everything else. Metrics are
// appended under each entry's package identity in registry order. An entry
// that fails or panics is logged and left out; it never prevents the others
// from being collected.
//
// Collect reports [perftiming.ErrPerformanceNotCaptured] if the Manager is
// disabled.
func (m *Manager) Collect(ctx context.Context) (perftiming.Document, error) {
	var doc perftiming.Document
	if !m.enabled {
		return doc, &perftiming.Error{
			Op:    `manager.Collect`,
			Kind:  perftiming.ErrPrecondition,
			Inner: perftiming.ErrPerformanceNotCaptured,
		}
	}
	ctx = log.WithPackage(ctx, m.id)
	begin := time.Now()
	api := m.API()

	var err error
	doc.ProcessTiming, err = api.ProcessTiming()
	if err != nil {
		return doc, err
	}
	doc.SystemInformation, err = api.SysInfo(ctx)
	if err != nil {
		return doc, err
	}

	entries := m.reg.Entries()
	results := make([]*perftiming.Metrics, len(entries))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		g.Go(func() error {
			results[i] = collectOne(ctx, e)
			return nil
		})
	}
	_ = g.Wait() // Per-entry errors are handled in collectOne.

	doc.Metrics = make(map[string][]perftiming.Metrics, len(entries))
	for i, e := range entries {
		if results[i] == nil {
			continue
		}
		id := e.Key.Label()
		doc.Metrics[id] = append(doc.Metrics[id], *results[i])
	}

	dur := float64(time.Since(begin).Microseconds()) / 1e3
	collectDuration.Record(ctx, dur)
	slog.DebugContext(ctx, "collected metrics",
		"entries", len(entries),
		"duration_ms", dur)
	return doc, nil
}

func collectOne(ctx context.Context, e registry.Entry) (out *perftiming.Metrics) {
	ctx = log.WithEntry(ctx, e.Key.Label())
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "collector panicked", "panic", r)
			out = nil
		}
		if out == nil {
			collectEntries.Add(ctx, 1, metric.WithAttributeSet(resultError))
		} else {
			collectEntries.Add(ctx, 1, metric.WithAttributeSet(resultOK))
		}
	}()
	if d, ok := e.Collector.(drainer); ok {
		if err := d.Drain(ctx); err != nil {
			slog.WarnContext(ctx, "unable to wait for pending entries", "reason", err)
		}
	}
	m, err := e.Collector.Metrics()
	if err != nil {
		slog.WarnContext(ctx, "unable to collect metrics", "reason", err)
		return nil
	}
	return &m
}

// Flush collects the merged document and persists it.
//
// Only the main manager flushes, and only once; on every other Manager, and
// on later calls, Flush does nothing and reports the first call's result.
func (m *Manager) Flush(ctx context.Context) (err error) {
	if !m.enabled || !m.main {
		return nil
	}
	m.flushOnce.Do(func() {
		m.flushErr = m.flush(ctx)
	})
	return m.flushErr
}

func (m *Manager) flush(ctx context.Context) (err error) {
	ctx = log.WithPackage(ctx, m.id)
	ctx, span := tracer.Start(ctx, "manager.Flush", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		attrs := resultOK
		if err != nil {
			attrs = resultError
			span.RecordError(err)
			span.SetStatus(codes.Error, "flush error")
			slog.ErrorContext(ctx, "unable to flush metrics", "reason", err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		flushCount.Add(ctx, 1, metric.WithAttributeSet(attrs))
		span.End()
	}()

	doc, err := m.Collect(ctx)
	if err != nil {
		return fmt.Errorf("manager: collect: %w", err)
	}
	p := m.persister
	if p == nil {
		s, herr := history.FromEnvironment(ctx, m.env)
		if herr != nil {
			return fmt.Errorf("manager: persister: %w", herr)
		}
		defer func() {
			if c, ok := s.(interface{ Close() error }); ok {
				if cerr := c.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("manager: persister: %w", cerr)
				}
			}
		}()
		p = s
	}
	if err := p.Save(ctx, doc); err != nil {
		return fmt.Errorf("manager: save: %w", err)
	}
	slog.InfoContext(ctx, "metrics flushed", "packages", len(doc.Metrics))
	return nil
}
