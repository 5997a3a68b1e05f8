// Package history persists merged documents as a rolling history.
//
// The default sink is a directory of JSON files: "metrics.1.json" is the most
// recent document, "metrics.2.json" the one before it, and so on up to the
// configured maximum. Setting PERF_TIMING_IO_SINK to "sqlite" stores the
// history in a SQLite database in the same directory instead.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/environment"
	"github.com/zowe/perf-timing/history/sqlite"
)

// Environment keys read by this package.
const (
	EnvMaxHistory = environment.Prefix + "_IO_MAX_HISTORY"
	EnvSaveDir    = environment.Prefix + "_IO_SAVE_DIR"
	EnvSink       = environment.Prefix + "_IO_SINK"
)

// DefaultMaxHistory is the default number of documents kept.
const DefaultMaxHistory = 5

// MaxHistoryLimit caps the history size read from the environment.
const MaxHistoryLimit = 1000

// Sink names accepted in EnvSink.
const (
	SinkFile   = "file"
	SinkSQLite = "sqlite"
)

// DatabaseName is the name of the database used by the SQLite sink.
const DatabaseName = "metrics.db"

func init() {
	env := environment.Default()
	env.MustRegister(EnvMaxHistory, DefaultMaxHistory)
	env.MustRegister(EnvSaveDir, DefaultDir())
	env.MustRegister(EnvSink, SinkFile)
}

// DefaultDir reports the default history directory, ".perf-timing" in the
// user's home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".perf-timing")
}

// Saver persists a merged document.
type Saver interface {
	Save(context.Context, perftiming.Document) error
}

// Config is the persistence configuration.
type Config struct {
	Dir        string
	MaxHistory int
	Sink       string
}

// ConfigFromEnvironment reads the persistence configuration from env.
//
// The history size is clamped to between 1 and [MaxHistoryLimit]; a
// non-finite size selects [DefaultMaxHistory].
func ConfigFromEnvironment(env *environment.Registry) (Config, error) {
	var c Config
	var err error
	if c.Dir, err = env.String(EnvSaveDir); err != nil {
		return c, err
	}
	n, err := env.Number(EnvMaxHistory)
	if err != nil {
		return c, err
	}
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		c.MaxHistory = DefaultMaxHistory
	case n > MaxHistoryLimit:
		c.MaxHistory = MaxHistoryLimit
	case n < 1:
		c.MaxHistory = 1
	default:
		c.MaxHistory = int(n)
	}
	if c.Sink, err = env.String(EnvSink); err != nil {
		return c, err
	}
	c.Sink = strings.ToLower(strings.TrimSpace(c.Sink))
	return c, nil
}

// FromEnvironment returns the Saver selected by env.
//
// If the returned Saver has a Close method, the caller must call it.
func FromEnvironment(ctx context.Context, env *environment.Registry) (Saver, error) {
	c, err := ConfigFromEnvironment(env)
	if err != nil {
		return nil, err
	}
	return c.Open(ctx)
}

// Open returns the Saver described by the Config.
func (c Config) Open(ctx context.Context) (Saver, error) {
	switch c.Sink {
	case SinkFile, "":
		return &Writer{Dir: c.Dir, MaxHistory: c.MaxHistory}, nil
	case SinkSQLite:
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		return sqlite.Open(ctx, filepath.Join(c.Dir, DatabaseName), c.MaxHistory)
	default:
		return nil, &perftiming.Error{
			Op:      `history.Open`,
			Kind:    perftiming.ErrInvalid,
			Message: fmt.Sprintf("unknown sink %q", c.Sink),
		}
	}
}

// Writer keeps a rolling history of documents as numbered JSON files.
type Writer struct {
	Dir string
	// MaxHistory is the number of files kept. Values less than 1 are treated
	// as 1.
	MaxHistory int
}

var _ Saver = (*Writer)(nil)

// FileName reports the name of the i'th most recent document in dir.
func FileName(dir string, i int) string {
	return filepath.Join(dir, "metrics."+strconv.Itoa(i)+".json")
}

// Save rotates the existing history and writes doc as the most recent
// document.
//
// The file at the maximum index is discarded and every other file moves up
// one index before "metrics.1.json" is written.
func (w *Writer) Save(ctx context.Context, doc perftiming.Document) error {
	n := max(w.MaxHistory, 1)
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	// Only existing files are moved, highest index first.
	idx, err := List(w.Dir)
	if err != nil {
		return err
	}
	for _, i := range slices.Backward(idx) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("history: rotate: %w", err)
		}
		if i >= n {
			if err := os.Remove(FileName(w.Dir, i)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("history: %w", err)
			}
			continue
		}
		err := os.Rename(FileName(w.Dir, i), FileName(w.Dir, i+1))
		switch {
		case errors.Is(err, nil):
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("history: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	f, err := os.CreateTemp(w.Dir, "metrics.*.tmp")
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	enc := json.NewEncoder(f)
	if err := enc.Encode(&doc); err != nil {
		f.Close()
		return fmt.Errorf("history: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	out := FileName(w.Dir, 1)
	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	slog.DebugContext(ctx, "wrote metrics", "file", out, "max_history", n)
	return nil
}

// Load reads the i'th most recent document in dir.
func Load(dir string, i int) (perftiming.Document, error) {
	var doc perftiming.Document
	f, err := os.Open(FileName(dir, i))
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, fs.ErrNotExist):
		return doc, &perftiming.Error{
			Op:      `history.Load`,
			Kind:    perftiming.ErrNotFound,
			Message: fmt.Sprintf("no document at index %d", i),
			Inner:   err,
		}
	default:
		return doc, fmt.Errorf("history: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return doc, fmt.Errorf("history: decode %q: %w", f.Name(), err)
	}
	return doc, nil
}

// List reports the indexes of the documents in dir, most recent first.
func List(dir string) ([]int, error) {
	ents, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, nil):
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	default:
		return nil, fmt.Errorf("history: %w", err)
	}
	var out []int
	for _, e := range ents {
		n, ok := strings.CutPrefix(e.Name(), "metrics.")
		if !ok {
			continue
		}
		n, ok = strings.CutSuffix(n, ".json")
		if !ok {
			continue
		}
		i, err := strconv.Atoi(n)
		if err != nil || i < 1 {
			continue
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return out, nil
}
