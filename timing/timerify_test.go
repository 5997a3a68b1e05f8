package timing

import (
	"errors"
	"strings"
	"testing"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/test"
)

func TestTimerify(t *testing.T) {
	ctx := test.Logging(t)
	tl := New()
	defer tl.Close()

	var got []Entry
	o := tl.Observe(func(es []Entry, _ *Observer) {
		got = append(got, es...)
	}, ObserveOptions{Types: []EntryType{EntryFunction}})
	defer o.Disconnect()

	t.Run("Plain", func(t *testing.T) {
		w, err := tl.Timerify(strings.ToUpper, "upper")
		if err != nil {
			t.Fatal(err)
		}
		if got, want := w.(func(string) string)("abc"), "ABC"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
	t.Run("Variadic", func(t *testing.T) {
		sum := func(base int, xs ...int) int {
			for _, x := range xs {
				base += x
			}
			return base
		}
		w, err := tl.Timerify(sum, "sum")
		if err != nil {
			t.Fatal(err)
		}
		if got, want := w.(func(int, ...int) int)(1, 2, 3), 6; got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	})
	t.Run("Panic", func(t *testing.T) {
		w, err := tl.Timerify(func() { panic("boom") }, "boom")
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("got panic %v", r)
			}
		}()
		w.(func())()
	})
	t.Run("NotAFunction", func(t *testing.T) {
		for _, v := range []any{nil, 4, (func())(nil)} {
			if _, err := tl.Timerify(v, "bad"); !errors.Is(err, perftiming.ErrInvalid) {
				t.Errorf("%#v: got %v, want ErrInvalid", v, err)
			}
		}
	})

	if err := tl.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	if want := "upper sum boom"; strings.Join(names, " ") != want {
		t.Errorf("got %v, want %q", names, want)
	}
}
