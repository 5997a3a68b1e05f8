// Package sqlite stores the perf-timing history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed" // embed sql statements
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"time"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/zowe/perf-timing"
)

var (
	//go:embed sql/schema.sql
	schema string
	//go:embed sql/insert.sql
	insert string
	//go:embed sql/prune.sql
	prune string
	//go:embed sql/load.sql
	load string
	//go:embed sql/count.sql
	count string
)

// Store is a handle to a history database.
type Store struct {
	db  *sql.DB
	max int
}

// Open opens or creates the history database at path, keeping at most
// maxHistory documents. Values of maxHistory less than 1 are treated as 1.
//
// The returned Store must have its Close method called, or the process may
// panic.
func Open(ctx context.Context, path string, maxHistory int) (*Store, error) {
	u := url.URL{
		Scheme: `file`,
		Opaque: path,
		RawQuery: url.Values{
			"_pragma": {
				"busy_timeout(5000)",
				"journal_mode(WAL)",
			},
		}.Encode(),
	}
	db, err := sql.Open(`sqlite`, u.String())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	s := Store{db: db, max: max(maxHistory, 1)}
	_, file, line, _ := runtime.Caller(1)
	runtime.SetFinalizer(&s, func(s *Store) {
		panic(fmt.Sprintf("%s:%d: history db not closed", file, line))
	})
	return &s, nil
}

// Close releases held resources.
//
// This must be called when the Store is no longer needed, or the process may
// panic.
func (s *Store) Close() error {
	runtime.SetFinalizer(s, nil)
	return s.db.Close()
}

// Save inserts doc as the most recent document and discards documents beyond
// the history limit.
func (s *Store) Save(ctx context.Context, doc perftiming.Document) (err error) {
	b, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("sqlite: encode: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, insert, now, b); err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, prune, s.max); err != nil {
		return fmt.Errorf("sqlite: prune: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Load returns the i'th most recent document; 1 is the newest.
func (s *Store) Load(ctx context.Context, i int) (perftiming.Document, time.Time, error) {
	const op = `sqlite.Load`
	var doc perftiming.Document
	if i < 1 {
		return doc, time.Time{}, &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("bad index %d", i),
		}
	}
	var at string
	var b []byte
	err := s.db.QueryRowContext(ctx, load, i-1).Scan(&at, &b)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, sql.ErrNoRows):
		return doc, time.Time{}, &perftiming.Error{
			Op:      op,
			Kind:    perftiming.ErrNotFound,
			Message: fmt.Sprintf("no document at index %d", i),
		}
	default:
		return doc, time.Time{}, fmt.Errorf("sqlite: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, time.Time{}, fmt.Errorf("sqlite: decode: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return doc, time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", at, err)
	}
	return doc, ts, nil
}

// Len reports the number of stored documents.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, count).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}
	return n, nil
}
