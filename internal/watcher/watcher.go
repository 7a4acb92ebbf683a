// Package watcher turns fsnotify notifications into detector events.
// It watches directories recursively and stamps each raw notification
// with a timestamp and a monotonic sequence number so the detection
// engine can order and group them.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filesift/filesift/internal/fileops"
)

// Watcher monitors file system changes and emits detector events.
type Watcher struct {
	logger *slog.Logger
	opts   Options
	fs     *fsnotify.Watcher

	seq atomic.Uint64

	mu    sync.Mutex
	sizes map[string]int64 // last observed size per path

	events  chan fileops.FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	stopped sync.Once
}

// New creates a watcher. Call Watch to add paths, then Start.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		logger: logger,
		opts:   opts,
		fs:     fs,
		sizes:  make(map[string]int64),
		events: make(chan fileops.FileEvent, opts.BufferSize),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}, nil
}

// Watch adds a path to be monitored. Files are watched via their parent
// directory; directories are watched recursively when Options.Recursive
// is set.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	if !info.IsDir() {
		return w.fs.Add(filepath.Dir(path))
	}
	if !w.opts.Recursive {
		return w.fs.Add(path)
	}
	return w.watchTree(path)
}

// watchTree adds watches for a directory and all its subdirectories.
func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if w.opts.shouldIgnore(p) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if err := w.fs.Add(p); err != nil {
			w.logger.Error("failed to add watch", "path", p, "error", err)
			return nil
		}
		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Start begins watching. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.run(ctx)

	<-ctx.Done()
	return nil
}

// Events returns the channel of adapted events.
func (w *Watcher) Events() <-chan fileops.FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	w.stopped.Do(func() {
		close(w.done)
		w.fs.Close()
		w.wg.Wait()
		close(w.events)
		close(w.errors)
	})
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// handle translates one fsnotify notification into zero or one detector
// events.
func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name
	if w.opts.shouldIgnore(path) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.opts.Recursive {
				if err := w.watchTree(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
		w.emit(w.adapt(fileops.EventCreated, path))

	case ev.Op.Has(fsnotify.Write):
		w.emit(w.adapt(fileops.EventModified, path))

	case ev.Op.Has(fsnotify.Remove):
		w.emit(w.adapt(fileops.EventDeleted, path))

	case ev.Op.Has(fsnotify.Rename):
		// fsnotify reports a rename at the old path only. Without the
		// destination there is no move to report, so it surfaces as a
		// deletion and the destination arrives as a separate create.
		w.emit(w.adapt(fileops.EventDeleted, path))
	}
}

// adapt builds a detector event for the given type and path, filling in
// size metadata from a stat and the previous observation.
func (w *Watcher) adapt(typ fileops.EventType, path string) fileops.FileEvent {
	meta := fileops.FileEventMetadata{
		Timestamp:      time.Now(),
		SequenceNumber: w.seq.Add(1),
	}

	w.mu.Lock()
	if prev, ok := w.sizes[path]; ok {
		before := prev
		meta.SizeBefore = &before
	}
	w.mu.Unlock()

	switch typ {
	case fileops.EventDeleted:
		w.mu.Lock()
		delete(w.sizes, path)
		w.mu.Unlock()
	default:
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			size := info.Size()
			meta.SizeAfter = &size
			w.mu.Lock()
			w.sizes[path] = size
			w.mu.Unlock()
		}
	}

	return fileops.FileEvent{Path: path, Type: typ, Metadata: meta}
}

func (w *Watcher) emit(ev fileops.FileEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	default:
		w.logger.Warn("event buffer full, dropping event", "path", ev.Path, "type", ev.Type)
	}
}
