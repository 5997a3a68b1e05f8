package manager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/environment"
	"github.com/zowe/perf-timing/history"
	"github.com/zowe/perf-timing/identity"
	"github.com/zowe/perf-timing/manager"
	"github.com/zowe/perf-timing/registry"
	"github.com/zowe/perf-timing/test"
	mock_manager "github.com/zowe/perf-timing/test/mock/manager"
	"github.com/zowe/perf-timing/timing"
)

func testEnv(vars map[string]string) *environment.Registry {
	return environment.Default().Overlay(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
}

var enabledEnv = map[string]string{manager.EnvEnabled: "true"}

// Fixture is a set of options shared by every manager in a test.
type fixture struct {
	env *environment.Registry
	reg *registry.Registry
	tl  *timing.Timeline
}

func newFixture(t *testing.T, vars map[string]string) *fixture {
	tl := timing.New()
	t.Cleanup(tl.Close)
	return &fixture{
		env: testEnv(vars),
		reg: registry.New(),
		tl:  tl,
	}
}

func (f *fixture) New(ctx context.Context, id string, opts ...manager.Option) *manager.Manager {
	base := []manager.Option{
		manager.WithEnvironment(f.env),
		manager.WithRegistry(f.reg),
		manager.WithTimeline(f.tl),
		manager.WithIdentity(identity.Static(id)),
		manager.WithExitHook(manager.NoExitHook),
	}
	return manager.New(ctx, append(base, opts...)...)
}

func TestDisabled(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	hook := mock_manager.NewMockExitHook(ctl)
	p := mock_manager.NewMockPersister(ctl)

	for _, v := range []string{"", "false", "yes", "TRUE "} {
		t.Run(v, func(t *testing.T) {
			f := newFixture(t, map[string]string{manager.EnvEnabled: v})
			m := f.New(ctx, "a@1.0.0", manager.WithExitHook(hook), manager.WithPersister(p))
			if m.Enabled() || m.Main() || m.PackageUUID() != "" {
				t.Errorf("enabled: %v, main: %v, id: %q", m.Enabled(), m.Main(), m.PackageUUID())
			}
			if a, b := m.API(), m.API(); a == nil || a != b {
				t.Error("API not memoized")
			}
			if f.reg.Len() != 0 {
				t.Error("disabled manager registered")
			}
			if _, err := m.Collect(ctx); !errors.Is(err, perftiming.ErrPerformanceNotCaptured) {
				t.Errorf("collect: got %v", err)
			}
			if err := m.Flush(ctx); err != nil {
				t.Errorf("flush: %v", err)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	ctx := test.Logging(t)
	for _, v := range []string{"true", "TRUE", "True"} {
		f := newFixture(t, map[string]string{manager.EnvEnabled: v})
		if m := f.New(ctx, "a@1.0.0"); !m.Enabled() {
			t.Errorf("%q: not enabled", v)
		}
	}
}

func TestSingleExitHook(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	hook := mock_manager.NewMockExitHook(ctl)
	hook.EXPECT().Install(gomock.Any()).Times(1)

	f := newFixture(t, enabledEnv)
	var wg sync.WaitGroup
	ms := make([]*manager.Manager, 8)
	for i := range ms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ms[i] = f.New(ctx, "a@1.0.0", manager.WithExitHook(hook))
		}()
	}
	wg.Wait()

	main := 0
	for _, m := range ms {
		if m.Main() {
			main++
		}
	}
	if main != 1 {
		t.Errorf("got %d main managers, want 1", main)
	}
}

func TestAPIRegistration(t *testing.T) {
	ctx := test.Logging(t)
	f := newFixture(t, enabledEnv)
	m := f.New(ctx, "a@1.0.0")
	if f.reg.Len() != 0 {
		t.Error("registered before the API was requested")
	}
	api := m.API()
	for range 5 {
		if m.API() != api {
			t.Fatal("API not memoized")
		}
	}
	if got := f.reg.Len(); got != 1 {
		t.Errorf("got %d registry entries, want 1", got)
	}
}

func TestIdentityFallback(t *testing.T) {
	ctx := test.Logging(t)
	f := newFixture(t, enabledEnv)
	m := f.New(ctx, "", manager.WithIdentity(identity.ProviderFunc(func() (string, error) {
		return "", errors.New("no manifest")
	})))
	if got, want := m.PackageUUID(), identity.Self(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFlush(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	p := mock_manager.NewMockPersister(ctl)

	var got perftiming.Document
	p.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc perftiming.Document) error {
			got = doc
			return nil
		}).
		Times(1)

	f := newFixture(t, enabledEnv)
	a := f.New(ctx, "a@1.0.0", manager.WithPersister(p))
	b := f.New(ctx, "b@2.0.0", manager.WithPersister(p))
	if !a.Main() || b.Main() {
		t.Fatalf("main: a=%v b=%v", a.Main(), b.Main())
	}

	api := b.API()
	api.Mark("start")
	for range 3 {
		if err := api.Measure("work", "start", ""); err != nil {
			t.Fatal(err)
		}
	}
	a.API()

	if err := b.Flush(ctx); err != nil {
		t.Errorf("non-main flush: %v", err)
	}
	for range 2 {
		if err := a.Flush(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if len(got.Metrics) != 2 {
		t.Fatalf("got %d packages, want 2", len(got.Metrics))
	}
	for _, id := range []string{"a@1.0.0", "b@2.0.0"} {
		if n := len(got.Metrics[id]); n != 1 {
			t.Errorf("%s: got %d entries, want 1", id, n)
		}
	}
	ms := got.Metrics["b@2.0.0"][0].Measurements
	if len(ms) != 1 || ms[0].Calls != 3 {
		t.Errorf("got measurements %+v, want 3 calls to work", ms)
	}
	if got.ProcessTiming.Name == "" || got.SystemInformation.Platform == "" {
		t.Error("missing process timing or system information")
	}

	t.Run("Telemetry", func(t *testing.T) {
		var rm metricdata.ResourceMetrics
		if err := metricReader.Collect(ctx, &rm); err != nil {
			t.Fatal(err)
		}
		var flushes int64
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != "perftiming.flush.count" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					flushes += dp.Value
				}
			}
		}
		if flushes < 1 {
			t.Errorf("got %d flushes recorded", flushes)
		}
		found := false
		for _, s := range spans.Ended() {
			if s.Name() == "manager.Flush" {
				found = true
			}
		}
		if !found {
			t.Error("no flush span recorded")
		}
	})
}

func TestIdentityCollision(t *testing.T) {
	ctx := test.Logging(t)
	f := newFixture(t, enabledEnv)
	ms := []*manager.Manager{
		f.New(ctx, "a@1.0.0"),
		f.New(ctx, "a@1.0.0"),
		f.New(ctx, "b@2.0.0"),
	}
	for _, m := range ms {
		m.API()
	}
	doc, err := ms[0].Collect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Metrics["a@1.0.0"]); got != 2 {
		t.Errorf("a@1.0.0: got %d entries, want 2", got)
	}
	if got := len(doc.Metrics["b@2.0.0"]); got != 1 {
		t.Errorf("b@2.0.0: got %d entries, want 1", got)
	}
}

func TestFailureIsolation(t *testing.T) {
	ctx := test.Logging(t)
	f := newFixture(t, enabledEnv)
	m := f.New(ctx, "a@1.0.0")
	m.API()
	if err := f.reg.Insert(registry.NewKey("broken@1.0.0"), registry.CollectorFunc(func() (perftiming.Metrics, error) {
		return perftiming.Metrics{}, errors.New("broken")
	})); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.Insert(registry.NewKey("panics@1.0.0"), registry.CollectorFunc(func() (perftiming.Metrics, error) {
		panic("oops")
	})); err != nil {
		t.Fatal(err)
	}
	f.New(ctx, "b@2.0.0").API()

	doc, err := m.Collect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"broken@1.0.0", "panics@1.0.0"} {
		if _, ok := doc.Metrics[id]; ok {
			t.Errorf("%s: failed entry present", id)
		}
	}
	for _, id := range []string{"a@1.0.0", "b@2.0.0"} {
		if _, ok := doc.Metrics[id]; !ok {
			t.Errorf("%s: missing", id)
		}
	}
}

func TestDefaultPersister(t *testing.T) {
	ctx := test.Logging(t)
	dir := t.TempDir()
	f := newFixture(t, map[string]string{
		manager.EnvEnabled:    "TRUE",
		history.EnvSaveDir:    dir,
		history.EnvMaxHistory: "2",
	})
	m := f.New(ctx, "a@1.0.0")
	m.API().Mark("x")
	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "metrics.1.json")); err != nil {
		t.Error(err)
	}
	doc, err := history.Load(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Metrics["a@1.0.0"]; !ok {
		t.Errorf("saved document missing package: %+v", doc.Metrics)
	}
}

func TestFlushError(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	p := mock_manager.NewMockPersister(ctl)
	want := errors.New("disk full")
	p.EXPECT().Save(gomock.Any(), gomock.Any()).Return(want).Times(1)

	f := newFixture(t, enabledEnv)
	m := f.New(ctx, "a@1.0.0", manager.WithPersister(p))
	for range 2 {
		if err := m.Flush(ctx); !errors.Is(err, want) {
			t.Errorf("got %v, want %v", err, want)
		}
	}
}

func TestExitHookFlush(t *testing.T) {
	ctx := test.Logging(t)
	ctl := gomock.NewController(t)
	p := mock_manager.NewMockPersister(ctl)
	p.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	var flush func(context.Context) error
	hook := manager.ExitHookFunc(func(f func(context.Context) error) { flush = f })
	f := newFixture(t, enabledEnv)
	m := f.New(ctx, "a@1.0.0", manager.WithExitHook(hook), manager.WithPersister(p))
	if flush == nil {
		t.Fatal("hook not installed")
	}
	// An explicit flush makes the hook's flush a no-op.
	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := flush(ctx); err != nil {
		t.Fatal(err)
	}
}
