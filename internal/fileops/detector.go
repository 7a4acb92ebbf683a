package fileops

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// OnOperationComplete receives each operation that streaming mode flushes,
// in ascending time order across calls.
type OnOperationComplete func(FileOperation)

// OperationDetector is the public entry point. It supports one-shot batch
// detection over a complete event list and an incremental streaming mode
// with per-target debounce timers and auto-flush.
//
// The open-group table is protected by a mutex; concurrent producers may
// call AddEvent safely. The completion callback runs with no detector state
// locked and must not re-enter the same detector synchronously.
type OperationDetector struct {
	cfg        DetectorConfig
	logger     *slog.Logger
	detectors  []Detector
	onComplete OnOperationComplete

	mu     sync.Mutex
	open   map[string]*streamGroup
	closed bool
}

// streamGroup is an open group in streaming mode. Its debounce timer is
// rescheduled on every event and force-closes the group once the window
// elapses with no further activity.
type streamGroup struct {
	eventGroup
	arrivedAt time.Time // wall-clock arrival of the newest event
	timer     *time.Timer
}

// NewDetector validates the configuration and builds a detector. Zero
// config fields take defaults; out-of-range values fail fast and are never
// clamped. onComplete may be nil for callers that only use batch mode or
// poll Flush.
func NewDetector(cfg DetectorConfig, logger *slog.Logger, onComplete OnOperationComplete) (*OperationDetector, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector config rejected: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationDetector{
		cfg:        cfg,
		logger:     logger,
		detectors:  builtinDetectors(),
		onComplete: onComplete,
		open:       make(map[string]*streamGroup),
	}, nil
}

// Config returns the effective configuration after defaulting.
func (d *OperationDetector) Config() DetectorConfig {
	return d.cfg
}

// Detect runs batch detection over a complete event sequence. The result is
// deterministic for a given input and configuration, ordered by start time,
// and contains only operations at or above the confidence floor. Groups
// that cannot be classified are omitted, never an error.
func (d *OperationDetector) Detect(events []FileEvent) []FileOperation {
	evs := make([]FileEvent, len(events))
	copy(evs, events)
	sortEvents(evs)
	groups := groupEvents(evs, d.cfg.TimeWindow)
	return d.classify(groups)
}

// AddEvent feeds one event into the live grouping state. If the event's
// timestamp falls outside the window of an existing group for the same
// target, that group is closed and its operation (if any) is delivered to
// the completion callback before the new group opens.
func (d *OperationDetector) AddEvent(e FileEvent) {
	for _, op := range d.ingest(e) {
		d.emit(op)
	}
}

// DetectStreaming is AddEvent plus an immediate attempt to close any group
// whose window has already elapsed on the wall clock. It returns the first
// operation produced by this call, or nil. The completion callback still
// fires for every operation, so callback-only callers may ignore the
// return value.
func (d *OperationDetector) DetectStreaming(e FileEvent) *FileOperation {
	ops := d.ingest(e)
	ops = append(ops, d.closeElapsed(time.Now())...)
	for _, op := range ops {
		d.emit(op)
	}
	if len(ops) == 0 {
		return nil
	}
	return &ops[0]
}

// Flush force-closes every open group regardless of elapsed time, runs
// detection on each, and returns the operations in ascending time order.
// Used at shutdown or when the caller knows no related events will arrive.
func (d *OperationDetector) Flush() []FileOperation {
	d.mu.Lock()
	groups := make([]*streamGroup, 0, len(d.open))
	for _, g := range d.open {
		if g.timer != nil {
			g.timer.Stop()
		}
		groups = append(groups, g)
	}
	d.open = make(map[string]*streamGroup)
	d.mu.Unlock()

	ops := d.finish(groups)
	for _, op := range ops {
		d.emit(op)
	}
	return ops
}

// Close cancels all debounce timers and discards pending groups without
// running detection. No callback fires after Close returns.
func (d *OperationDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, g := range d.open {
		if g.timer != nil {
			g.timer.Stop()
		}
	}
	d.open = make(map[string]*streamGroup)
}

// ingest adds the event to the open-group table and returns operations from
// any group the event's timestamp pushed out of its window. It does not
// invoke the callback; callers do.
func (d *OperationDetector) ingest(e FileEvent) []FileOperation {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}

	srcKey := normalizeKey(e.Path)
	g, foundKey := d.open[srcKey], srcKey
	if g == nil && e.Type == EventMoved && e.DestPath != "" {
		destKey := normalizeKey(e.DestPath)
		if other := d.open[destKey]; other != nil {
			g, foundKey = other, destKey
		}
	}

	var expired []*streamGroup
	if g != nil && e.Time().Sub(g.lastTime()) > d.cfg.TimeWindow {
		if g.timer != nil {
			g.timer.Stop()
		}
		delete(d.open, foundKey)
		expired = append(expired, g)
		g = nil
	}

	if g == nil {
		g = &streamGroup{eventGroup: eventGroup{key: srcKey}}
		d.open[srcKey] = g
		foundKey = srcKey
	}

	if newKey := g.append(e); newKey != foundKey {
		delete(d.open, foundKey)
		d.open[newKey] = g
	}
	g.arrivedAt = time.Now()

	if g.timer != nil {
		g.timer.Stop()
	}
	grp := g
	g.timer = time.AfterFunc(d.cfg.TimeWindow, func() { d.autoClose(grp) })

	d.mu.Unlock()
	return d.finish(expired)
}

// autoClose fires from a group's debounce timer. The group may already have
// been consumed by Flush or re-keyed by a move; pointer identity guards
// against double-closing. The fired group is never handled alone: every
// other group whose window has also elapsed is swept in the same pass, so
// near-simultaneous expiries go through one finish call. That keeps the
// callback in ascending event-time order and lets sibling groups merge
// into a batch exactly as they would under Detect or Flush.
func (d *OperationDetector) autoClose(g *streamGroup) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	cur, ok := d.open[g.key]
	if !ok || cur != g {
		d.mu.Unlock()
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	delete(d.open, g.key)
	ripe := append(d.collectElapsed(time.Now()), g)
	d.mu.Unlock()

	for _, op := range d.finish(ripe) {
		d.emit(op)
	}
}

// collectElapsed removes and returns every open group whose wall-clock
// window has elapsed. The caller must hold d.mu.
func (d *OperationDetector) collectElapsed(now time.Time) []*streamGroup {
	var ripe []*streamGroup
	for key, g := range d.open {
		if now.Sub(g.arrivedAt) >= d.cfg.TimeWindow {
			if g.timer != nil {
				g.timer.Stop()
			}
			delete(d.open, key)
			ripe = append(ripe, g)
		}
	}
	return ripe
}

// closeElapsed pops every open group whose wall-clock window has elapsed
// and returns their operations.
func (d *OperationDetector) closeElapsed(now time.Time) []FileOperation {
	d.mu.Lock()
	ripe := d.collectElapsed(now)
	d.mu.Unlock()
	return d.finish(ripe)
}

// finish runs the detection pipeline over closed streaming groups.
func (d *OperationDetector) finish(groups []*streamGroup) []FileOperation {
	if len(groups) == 0 {
		return nil
	}
	egs := make([]*eventGroup, 0, len(groups))
	for _, g := range groups {
		sortEvents(g.events)
		eg := g.eventGroup
		egs = append(egs, &eg)
	}
	sort.SliceStable(egs, func(i, j int) bool {
		return egs[i].events[0].Time().Before(egs[j].events[0].Time())
	})
	return d.classify(egs)
}

// classify maps groups to operations: per-group detector matching with
// tie-breaking, cross-group batch merging, then the confidence floor.
func (d *OperationDetector) classify(groups []*eventGroup) []FileOperation {
	var ops []FileOperation
	for _, g := range groups {
		if len(g.events) == 0 {
			continue
		}
		op, ok := d.classifyGroup(g)
		if !ok {
			d.logger.Debug("event group unclassified, dropping",
				"key", g.key, "events", len(g.events))
			continue
		}
		ops = append(ops, op)
	}

	ops = mergeBatches(ops, d.cfg.TimeWindow, d.cfg.MinBatchSize)

	kept := ops[:0]
	for _, op := range ops {
		if op.Confidence >= d.cfg.MinConfidence {
			kept = append(kept, op)
		} else {
			d.logger.Debug("operation below confidence floor, dropping",
				"type", string(op.Type), "path", op.PrimaryPath,
				"confidence", op.Confidence)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartTime.Before(kept[j].StartTime)
	})
	return kept
}

// classifyGroup runs every detector over one group and tie-breaks the
// candidates.
func (d *OperationDetector) classifyGroup(g *eventGroup) (FileOperation, bool) {
	var candidates []FileOperation
	for _, det := range d.detectors {
		if op, ok := det.Detect(g.events); ok {
			candidates = append(candidates, op)
		}
	}
	return pickBest(candidates)
}

// emit delivers one operation to the completion callback. A panicking
// callback is contained here so it cannot corrupt detector state or starve
// other pending groups.
func (d *OperationDetector) emit(op FileOperation) {
	if d.onComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("operation callback panicked",
				"type", string(op.Type), "path", op.PrimaryPath, "panic", r)
		}
	}()
	d.onComplete(op)
}
