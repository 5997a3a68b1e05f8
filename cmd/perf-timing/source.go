package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/history"
	"github.com/zowe/perf-timing/history/sqlite"
)

// Source is a read-only view of a metrics history.
type source interface {
	// Indexes reports the stored document indexes, most recent first.
	Indexes(context.Context) ([]int, error)
	// Load returns the document at index i and, if known, when it was saved.
	Load(context.Context, int) (perftiming.Document, time.Time, error)
	Close() error
}

func openSource(ctx context.Context, c history.Config) (source, error) {
	switch c.Sink {
	case history.SinkFile, "":
		return fileSource(c.Dir), nil
	case history.SinkSQLite:
		s, err := sqlite.Open(ctx, filepath.Join(c.Dir, history.DatabaseName), c.MaxHistory)
		if err != nil {
			return nil, err
		}
		return dbSource{s}, nil
	default:
		return nil, &perftiming.Error{
			Op:      `perf-timing.openSource`,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("unknown sink %q", c.Sink),
		}
	}
}

type fileSource string

func (d fileSource) Indexes(_ context.Context) ([]int, error) {
	return history.List(string(d))
}

func (d fileSource) Load(_ context.Context, i int) (perftiming.Document, time.Time, error) {
	doc, err := history.Load(string(d), i)
	return doc, time.Time{}, err
}

func (fileSource) Close() error { return nil }

type dbSource struct {
	*sqlite.Store
}

func (s dbSource) Indexes(ctx context.Context) ([]int, error) {
	n, err := s.Len(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out, nil
}
