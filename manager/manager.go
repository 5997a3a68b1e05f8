// Package manager coordinates perf-timing across every instrumented package in
// a process.
//
// Each instrumented package constructs its own [Manager]. Managers are only
// active when the PERF_TIMING_ENABLED environment variable is "true",
// compared case-insensitively; a disabled Manager does no further work and
// its API is a no-op.
//
// Active managers share a process-wide [registry.Registry]. The first one
// constructed is the main manager: it installs the one exit hook for the
// process and is the only Manager whose [Manager.Flush] does anything. Flush
// collects the metrics of every registered package into one
// [perftiming.Document] and persists it.
//
// Programs should call Flush on the main manager (or on every manager they
// own; non-main managers ignore it) before exiting. The exit hook is a
// fallback for programs that are stopped by a signal.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/environment"
	"github.com/zowe/perf-timing/identity"
	"github.com/zowe/perf-timing/log"
	"github.com/zowe/perf-timing/perfapi"
	"github.com/zowe/perf-timing/registry"
	"github.com/zowe/perf-timing/timing"
)

const (
	// EnvEnabled is the environment key that activates perf-timing.
	EnvEnabled = environment.Prefix + "_ENABLED"
	// EnabledValue is the value of EnvEnabled, compared case-insensitively,
	// that activates perf-timing.
	EnabledValue = "TRUE"
)

func init() {
	environment.Default().MustRegister(EnvEnabled, "")
}

var _ perfapi.Manager = (*Manager)(nil)

// Manager is the per-package entry point to perf-timing.
type Manager struct {
	ctx       context.Context
	enabled   bool
	main      bool
	id        string
	env       *environment.Registry
	reg       *registry.Registry
	timeline  func() *timing.Timeline
	persister Persister

	apiOnce sync.Once
	api     *perfapi.API
	key     registry.Key

	flushOnce sync.Once
	flushErr  error
}

// New constructs a Manager.
//
// Unless [WithIdentity] is used, the identity is the module of the function
// that called New, falling back to perf-timing's own module.
//
// The passed Context is only used for logging.
func New(ctx context.Context, opts ...Option) *Manager {
	cfg := config{
		identity: identity.Caller(1),
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.env == nil {
		cfg.env = environment.Default()
	}
	if cfg.registry == nil {
		cfg.registry = registry.Default()
	}
	if cfg.hook == nil {
		cfg.hook = DefaultSignalHook()
	}

	m := &Manager{
		ctx:       ctx,
		env:       cfg.env,
		reg:       cfg.registry,
		timeline:  cfg.timeline,
		persister: cfg.persister,
	}
	m.enabled = enabled(ctx, cfg.env)
	if !m.enabled {
		return m
	}

	id, err := cfg.identity.Identity()
	if err != nil {
		id = identity.Self()
		slog.DebugContext(ctx, "unable to determine package identity, using fallback",
			"reason", err,
			"identity", id)
	}
	m.id = id
	m.ctx = log.WithPackage(ctx, id)

	if m.reg.Elect() {
		m.main = true
		cfg.hook.Install(m.Flush)
		slog.DebugContext(m.ctx, "main manager elected")
	}
	return m
}

func enabled(ctx context.Context, env *environment.Registry) bool {
	if err := env.Register(EnvEnabled, ""); err != nil && !errors.Is(err, perftiming.ErrDuplicateKey) {
		slog.WarnContext(ctx, "unable to register enable flag", "reason", err)
		return false
	}
	v, err := env.String(EnvEnabled)
	if err != nil {
		slog.WarnContext(ctx, "unable to read enable flag", "reason", err)
		return false
	}
	return strings.EqualFold(v, EnabledValue)
}

var defaultManager = sync.OnceValue(func() *Manager {
	return New(context.Background(), WithIdentity(identity.ProviderFunc(func() (string, error) {
		return identity.Self(), nil
	})))
})

// Default returns a process-wide Manager identified as perf-timing itself,
// for callers that don't need their own namespace.
func Default() *Manager {
	return defaultManager()
}

// Enabled reports whether perf-timing is active for this Manager.
func (m *Manager) Enabled() bool { return m.enabled }

// PackageUUID reports the identity used to namespace this Manager's names.
// It is empty when the Manager is disabled.
func (m *Manager) PackageUUID() string { return m.id }

// Main reports whether this Manager is the main manager for its registry.
func (m *Manager) Main() bool { return m.main }

// API returns the Manager's instrumentation API.
//
// The first call constructs the API and, when enabled, inserts it into the
// registry. Later calls return the same API.
func (m *Manager) API() *perfapi.API {
	m.apiOnce.Do(func() {
		m.api = perfapi.New(m, timing.NewAdapter(m.enabled, m.timeline))
		if !m.enabled {
			return
		}
		m.key = registry.NewKey(m.id)
		if err := m.reg.Insert(m.key, m.api); err != nil {
			slog.WarnContext(m.ctx, "unable to register instrumentation API", "reason", err)
			return
		}
		slog.DebugContext(m.ctx, "instrumentation API registered", "key", m.key)
	})
	return m.api
}
