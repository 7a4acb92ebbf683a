// Package monitor wires the watcher, the detection engine and the
// journal into one long-running pipeline.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/filesift/filesift/internal/fileops"
	"github.com/filesift/filesift/internal/journal"
	"github.com/filesift/filesift/internal/ratelimit"
	"github.com/filesift/filesift/internal/watcher"
)

// Options configures a Monitor.
type Options struct {
	Watcher     *watcher.Watcher
	Detector    fileops.DetectorConfig
	Journal     *journal.Journal       // optional, nil disables persistence
	Limiter     *ratelimit.PathLimiter // optional, nil disables throttling
	Logger      *slog.Logger
	OnOperation fileops.OnOperationComplete // optional extra sink
}

// Monitor runs the watch pipeline: raw events in, detected operations
// out to the log, the journal and an optional callback.
type Monitor struct {
	watcher  *watcher.Watcher
	detector *fileops.OperationDetector
	journal  *journal.Journal
	limiter  *ratelimit.PathLimiter
	logger   *slog.Logger
	sink     fileops.OnOperationComplete
}

// New builds a monitor. The detector is constructed here so its
// completion callback lands in the monitor's operation handler.
func New(opts Options) (*Monitor, error) {
	if opts.Watcher == nil {
		return nil, fmt.Errorf("monitor requires a watcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		watcher: opts.Watcher,
		journal: opts.Journal,
		limiter: opts.Limiter,
		logger:  logger,
		sink:    opts.OnOperation,
	}

	detector, err := fileops.NewDetector(opts.Detector, logger, m.handleOperation)
	if err != nil {
		return nil, fmt.Errorf("failed to build detector: %w", err)
	}
	m.detector = detector

	return m, nil
}

// Run processes events until the context is cancelled, then flushes
// whatever is still pending so no observed activity is lost.
func (m *Monitor) Run(ctx context.Context) error {
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	go func() { _ = m.watcher.Start(watchCtx) }()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()

		case ev, ok := <-m.watcher.Events():
			if !ok {
				m.shutdown()
				return nil
			}
			m.logger.Debug("event received",
				"type", ev.Type,
				"path", ev.Path,
				"seq", ev.Metadata.SequenceNumber)
			m.detector.AddEvent(ev)

		case err, ok := <-m.watcher.Errors():
			if !ok {
				m.shutdown()
				return nil
			}
			m.logger.Error("watcher error", "error", err)
		}
	}
}

// shutdown drains pending groups through the normal handler path.
func (m *Monitor) shutdown() {
	ops := m.detector.Flush()
	m.detector.Close()
	if len(ops) > 0 {
		m.logger.Info("flushed pending operations", "count", len(ops))
	}
}

// handleOperation is the detector's completion callback.
func (m *Monitor) handleOperation(op fileops.FileOperation) {
	if m.limiter != nil && !m.limiter.Allow(op.PrimaryPath) {
		m.logger.Debug("operation suppressed by rate limit",
			"type", op.Type,
			"path", op.PrimaryPath)
		return
	}

	m.logger.Info("operation detected",
		"type", op.Type,
		"path", op.PrimaryPath,
		"confidence", fmt.Sprintf("%.2f", op.Confidence),
		"events", op.EventCount,
		"duration", op.Duration(),
		"description", op.Description())

	if m.journal != nil {
		if err := m.journal.Record(op); err != nil {
			m.logger.Error("failed to journal operation", "error", err)
		}
	}

	if m.sink != nil {
		m.sink(op)
	}
}
