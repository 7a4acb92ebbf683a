// Package di wires the filesift services together.
package di

import (
	"github.com/samber/do/v2"
)

// ConfigPath is the optional YAML config file location, injected from
// the CLI flags.
type ConfigPath string

// WatchPaths are the paths named on the command line. They take
// precedence over the config file's watch paths.
type WatchPaths []string

// NewContainer creates and configures the DI container.
func NewContainer(configPath string, watchPaths []string) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, ConfigPath(configPath))
	do.ProvideValue(injector, WatchPaths(watchPaths))

	// Core infrastructure
	do.Provide(injector, ProvideConfig)
	do.Provide(injector, ProvideLogger)

	// Pipeline
	do.Provide(injector, ProvideJournal)
	do.Provide(injector, ProvideLimiter)
	do.Provide(injector, ProvideWatcher)
	do.Provide(injector, ProvideMonitor)

	return injector
}
