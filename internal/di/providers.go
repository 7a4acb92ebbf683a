package di

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/filesift/filesift/internal/config"
	"github.com/filesift/filesift/internal/journal"
	"github.com/filesift/filesift/internal/logger"
	"github.com/filesift/filesift/internal/monitor"
	"github.com/filesift/filesift/internal/ratelimit"
	"github.com/filesift/filesift/internal/watcher"
)

// Announcements per path per second before the monitor goes quiet on a
// hot path, and how many may arrive back to back.
const (
	announceRate  = 1.0
	announceBurst = 5
)

// ProvideConfig loads the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	path := do.MustInvoke[ConfigPath](i)
	return config.Load(string(path))
}

// ProvideLogger builds the structured logger from the config.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Logger.Level),
		Format: cfg.Logger.Format,
	})
	return log, nil
}

// JournalHandle wraps the journal for lifecycle management. Journal is
// nil when persistence is disabled.
type JournalHandle struct {
	*journal.Journal
}

// Shutdown implements do.Shutdownable.
func (h *JournalHandle) Shutdown() error {
	if h.Journal == nil {
		return nil
	}
	return h.Close()
}

// ProvideJournal opens the operation journal when enabled.
func ProvideJournal(i do.Injector) (*JournalHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Journal.Enabled {
		return &JournalHandle{}, nil
	}

	log := do.MustInvoke[*slog.Logger](i)
	j, err := journal.Open(cfg.Journal.Path, log)
	if err != nil {
		return nil, err
	}
	log.Info("journal opened", "path", cfg.Journal.Path)
	return &JournalHandle{Journal: j}, nil
}

// LimiterHandle wraps the per-path limiter for lifecycle management.
type LimiterHandle struct {
	*ratelimit.PathLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideLimiter builds the per-path announcement limiter.
func ProvideLimiter(i do.Injector) (*LimiterHandle, error) {
	return &LimiterHandle{PathLimiter: ratelimit.New(announceRate, announceBurst)}, nil
}

// WatcherHandle wraps the watcher for lifecycle management.
type WatcherHandle struct {
	*watcher.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	return h.Stop()
}

// ProvideWatcher builds the watcher and registers the watch paths.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	paths := []string(do.MustInvoke[WatchPaths](i))
	if len(paths) == 0 {
		paths = cfg.Watch.Paths
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	w, err := watcher.New(log, watcher.Options{
		IgnorePatterns: cfg.Watch.Ignore,
		Recursive:      cfg.Watch.Recursive,
	})
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := w.Watch(path); err != nil {
			_ = w.Stop()
			return nil, fmt.Errorf("failed to watch %s: %w", path, err)
		}
		log.Info("watching", "path", path)
	}

	return &WatcherHandle{Watcher: w}, nil
}

// ProvideMonitor assembles the watch pipeline.
func ProvideMonitor(i do.Injector) (*monitor.Monitor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	w := do.MustInvoke[*WatcherHandle](i)
	j := do.MustInvoke[*JournalHandle](i)
	lim := do.MustInvoke[*LimiterHandle](i)

	return monitor.New(monitor.Options{
		Watcher:  w.Watcher,
		Detector: cfg.DetectorConfig(),
		Journal:  j.Journal,
		Limiter:  lim.PathLimiter,
		Logger:   log,
	})
}
