package timing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/test"
)

func TestMeasure(t *testing.T) {
	tl := New()
	defer tl.Close()

	tl.Mark("a")
	time.Sleep(2 * time.Millisecond)
	tl.Mark("b")

	e, err := tl.Measure("ab", "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if e.Duration <= 0 {
		t.Errorf("got duration %v, want > 0", e.Duration)
	}
	want := Entry{Name: "ab", Type: EntryMeasure, StartMark: "a", EndMark: "b"}
	if !cmp.Equal(e, want, test.IgnoreTimes) {
		t.Error(cmp.Diff(e, want, test.IgnoreTimes))
	}

	t.Run("MostRecentMark", func(t *testing.T) {
		tl.Mark("a")
		e, err := tl.Measure("ab", "a", "")
		if err != nil {
			t.Fatal(err)
		}
		marks := tl.EntriesByName("a", EntryMark)
		if len(marks) != 2 {
			t.Fatalf("got %d marks, want 2", len(marks))
		}
		if got, want := e.StartTime, marks[1].StartTime; got != want {
			t.Errorf("got start %v, want %v", got, want)
		}
	})
	t.Run("FromOrigin", func(t *testing.T) {
		e, err := tl.Measure("origin", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if e.StartTime != 0 {
			t.Errorf("got start %v, want 0", e.StartTime)
		}
	})
	t.Run("MissingMark", func(t *testing.T) {
		_, err := tl.Measure("x", "nope", "")
		if !errors.Is(err, perftiming.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
		if got := tl.EntriesByName("x"); len(got) != 0 {
			t.Errorf("failed measure recorded entries: %v", got)
		}
	})
}

func TestClearMarks(t *testing.T) {
	tl := New()
	defer tl.Close()

	for _, n := range []string{"p: one", "p: two", "q: one"} {
		tl.Mark(n)
	}
	tl.ClearMarks("p: one")
	if _, err := tl.Measure("m", "p: one", ""); !errors.Is(err, perftiming.ErrNotFound) {
		t.Errorf("cleared mark still measurable: %v", err)
	}
	tl.ClearMarksPrefix("p: ")
	if _, err := tl.Measure("m", "p: two", ""); !errors.Is(err, perftiming.ErrNotFound) {
		t.Errorf("cleared mark still measurable: %v", err)
	}
	if _, err := tl.Measure("m", "q: one", ""); err != nil {
		t.Errorf("unrelated mark cleared: %v", err)
	}
	tl.ClearMarks("")
	for _, e := range tl.Entries() {
		if e.Type == EntryMark {
			t.Errorf("mark survived: %+v", e)
		}
	}
}

func TestObserve(t *testing.T) {
	ctx := test.Logging(t)
	tl := New()
	defer tl.Close()

	var got []Entry
	o := tl.Observe(func(es []Entry, _ *Observer) {
		got = append(got, es...)
	}, ObserveOptions{Types: []EntryType{EntryMeasure}})

	tl.Mark("a")
	if _, err := tl.Measure("one", "a", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := tl.Measure("two", "a", ""); err != nil {
		t.Fatal(err)
	}
	if err := tl.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if rest := o.Disconnect(); len(rest) != 0 {
		t.Errorf("undelivered entries after drain: %v", rest)
	}

	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	if want := []string{"one", "two"}; !cmp.Equal(names, want) {
		t.Error(cmp.Diff(names, want))
	}
}

func TestObserveOnce(t *testing.T) {
	ctx := test.Logging(t)
	tl := New()
	defer tl.Close()

	release := make(chan struct{})
	entered := make(chan struct{})
	var delivered, leftover []Entry
	tl.Observe(func(es []Entry, o *Observer) {
		close(entered)
		<-release
		delivered = es
		leftover = o.Disconnect()
	}, ObserveOptions{Name: "m", Once: true})

	if _, err := tl.Measure("m", "", ""); err != nil {
		t.Fatal(err)
	}
	<-entered
	// Recorded while the first batch is in the callback.
	if _, err := tl.Measure("m", "", ""); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := tl.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tl.Measure("m", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := tl.Drain(ctx); err != nil {
		t.Fatal(err)
	}

	if got, want := len(delivered), 1; got != want {
		t.Errorf("delivered: got %d, want %d", got, want)
	}
	if got, want := len(leftover), 1; got != want {
		t.Errorf("leftover: got %d, want %d", got, want)
	}
}

func TestObserveBuffered(t *testing.T) {
	ctx := test.Logging(t)
	tl := New()
	defer tl.Close()

	tl.Mark("early")
	var got []Entry
	o := tl.Observe(func(es []Entry, _ *Observer) {
		got = append(got, es...)
	}, ObserveOptions{Types: []EntryType{EntryMark}, Buffered: true})
	defer o.Disconnect()
	if err := tl.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "early" {
		t.Errorf("got %v, want the buffered mark", got)
	}
}

func TestTakeRecords(t *testing.T) {
	tl := New()
	tl.Close()
	o := tl.Observe(func([]Entry, *Observer) {
		t.Error("delivered on closed timeline")
	}, ObserveOptions{})
	if o.Connected() {
		t.Error("observer on closed timeline is connected")
	}
	if got := o.TakeRecords(); len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestDrainCanceled(t *testing.T) {
	tl := New()
	defer tl.Close()

	block := make(chan struct{})
	defer close(block)
	entered := make(chan struct{})
	tl.Observe(func([]Entry, *Observer) {
		close(entered)
		<-block
	}, ObserveOptions{Once: true})
	tl.Mark("x")
	<-entered

	ctx, cancel := context.WithTimeout(test.Logging(t), 10*time.Millisecond)
	defer cancel()
	if err := tl.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestProcessTiming(t *testing.T) {
	tl := New()
	defer tl.Close()
	pt := tl.ProcessTiming()
	t.Logf("%+v", pt)
	if pt.Name != "process" {
		t.Errorf("got name %q", pt.Name)
	}
	if pt.Duration <= 0 {
		t.Errorf("got duration %v, want > 0", pt.Duration)
	}
	if pt.RuntimeInit < 0 || pt.TimelineStart < pt.RuntimeInit {
		t.Errorf("offsets out of order: init %v, timeline %v", pt.RuntimeInit, pt.TimelineStart)
	}
	if pt.Goroutines < 1 {
		t.Errorf("got %d goroutines", pt.Goroutines)
	}
}
