package manager

import (
	"context"

	"github.com/zowe/perf-timing"
	"github.com/zowe/perf-timing/environment"
	"github.com/zowe/perf-timing/identity"
	"github.com/zowe/perf-timing/registry"
	"github.com/zowe/perf-timing/timing"
)

// Persister stores the merged document.
type Persister interface {
	Save(context.Context, perftiming.Document) error
}

// ExitHook arranges for flush to be called when the process is stopped.
//
// Install is called at most once per registry, by the main manager.
type ExitHook interface {
	Install(flush func(context.Context) error)
}

// ExitHookFunc adapts a function to an [ExitHook].
type ExitHookFunc func(func(context.Context) error)

// Install implements [ExitHook].
func (f ExitHookFunc) Install(flush func(context.Context) error) { f(flush) }

// NoExitHook installs nothing. Programs using it must call [Manager.Flush].
var NoExitHook ExitHook = ExitHookFunc(func(func(context.Context) error) {})

type config struct {
	env       *environment.Registry
	registry  *registry.Registry
	identity  identity.Provider
	timeline  func() *timing.Timeline
	persister Persister
	hook      ExitHook
}

// Option configures a Manager.
type Option func(*config)

// WithEnvironment sets the environment registry the enable flag and
// persistence settings are read from. The default is [environment.Default].
func WithEnvironment(env *environment.Registry) Option {
	return func(c *config) { c.env = env }
}

// WithRegistry sets the registry the Manager joins. The default is
// [registry.Default].
func WithRegistry(r *registry.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithIdentity sets the identity provider.
func WithIdentity(p identity.Provider) Option {
	return func(c *config) { c.identity = p }
}

// WithTimeline sets the timeline the API records into. The default is
// [timing.Default].
func WithTimeline(tl *timing.Timeline) Option {
	return func(c *config) { c.timeline = func() *timing.Timeline { return tl } }
}

// WithPersister sets where the main manager saves the merged document. The
// default is chosen by the history package from the environment at flush
// time.
func WithPersister(p Persister) Option {
	return func(c *config) { c.persister = p }
}

// WithExitHook sets the exit hook the main manager installs. The default is
// [DefaultSignalHook].
func WithExitHook(h ExitHook) Option {
	return func(c *config) { c.hook = h }
}
