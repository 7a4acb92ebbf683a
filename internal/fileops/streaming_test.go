package fileops

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// opRecorder collects callback deliveries for assertions.
type opRecorder struct {
	mu  sync.Mutex
	ops []FileOperation
}

func (r *opRecorder) record(op FileOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *opRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

func (r *opRecorder) all() []FileOperation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FileOperation, len(r.ops))
	copy(out, r.ops)
	return out
}

func newStreamingDetector(t *testing.T, cfg DetectorConfig, rec *opRecorder) *OperationDetector {
	t.Helper()
	d, err := NewDetector(cfg, testLogger(t), rec.record)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestStreaming_CallbackFiresOnAutoFlush(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".test.py.tmp.123"))
	d.AddEvent(fe(base.Add(5*time.Millisecond), 2, EventModified, ".test.py.tmp.123"))
	d.AddEvent(feMove(base.Add(10*time.Millisecond), 3, ".test.py.tmp.123", "test.py"))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 10*time.Millisecond)

	op := rec.all()[0]
	assert.Equal(t, OpAtomicSave, op.Type)
	assert.Equal(t, "test.py", op.PrimaryPath)
	assert.Equal(t, 3, op.EventCount)
	assert.True(t, op.IsAtomic)
}

func TestStreaming_TempEventsHiddenUntilComplete(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".test.py.tmp.456"))
	assert.Zero(t, rec.count(), "temp file creation must stay buffered")

	d.AddEvent(fe(base.Add(5*time.Millisecond), 2, EventModified, ".test.py.tmp.456"))
	assert.Zero(t, rec.count(), "still buffering")

	d.AddEvent(feMove(base.Add(10*time.Millisecond), 3, ".test.py.tmp.456", "test.py"))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "test.py", rec.all()[0].PrimaryPath)
}

func TestStreaming_PlainModifyEmitsAfterFlush(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	d.AddEvent(fe(time.Now(), 1, EventModified, "incomplete.txt"))
	assert.Zero(t, rec.count(), "no synchronous emission before the window elapses")

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 10*time.Millisecond)
	op := rec.all()[0]
	assert.Equal(t, OpModify, op.Type)
	assert.Equal(t, "incomplete.txt", op.PrimaryPath)
}

func TestStreaming_MultipleOperations(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 80 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".file1.py.tmp.1"))
	d.AddEvent(feMove(base.Add(5*time.Millisecond), 2, ".file1.py.tmp.1", "file1.py"))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 10*time.Millisecond)

	base2 := time.Now()
	d.AddEvent(fe(base2, 3, EventCreated, ".file2.py.tmp.2"))
	d.AddEvent(feMove(base2.Add(5*time.Millisecond), 4, ".file2.py.tmp.2", "file2.py"))

	require.Eventually(t, func() bool { return rec.count() == 2 },
		time.Second, 10*time.Millisecond)

	ops := rec.all()
	assert.Equal(t, "file1.py", ops[0].PrimaryPath)
	assert.Equal(t, "file2.py", ops[1].PrimaryPath)
}

func TestStreaming_TempChurnSuppressed(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 80 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".build_cache.tmp"))
	d.AddEvent(fe(base.Add(5*time.Millisecond), 2, EventDeleted, ".build_cache.tmp"))
	d.AddEvent(feMove(base.Add(10*time.Millisecond), 3, ".foo.tmp.1", ".foo.tmp.2"))

	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, rec.count(), "pure temp churn must never reach the callback")
}

func TestStreaming_RealFileSurvivesTempChurn(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 80 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".cache.tmp"))
	d.AddEvent(fe(base.Add(5*time.Millisecond), 2, EventModified, "data.json"))
	d.AddEvent(fe(base.Add(10*time.Millisecond), 3, EventDeleted, ".cache.tmp"))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "data.json", rec.all()[0].PrimaryPath)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestStreaming_VimBackupPattern(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, "document.txt~"))
	d.AddEvent(fe(base.Add(5*time.Millisecond), 2, EventModified, "document.txt"))

	require.Eventually(t, func() bool { return rec.count() >= 1 },
		time.Second, 10*time.Millisecond)

	var sawMain bool
	for _, op := range rec.all() {
		if op.PrimaryPath == "document.txt" {
			sawMain = true
			assert.Equal(t, OpSafeWrite, op.Type)
			assert.True(t, op.HasBackup)
		}
	}
	assert.True(t, sawMain, "the real file must surface as the primary path")
}

func TestDetectStreaming_ReturnsOperationOnGapClosure(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 50 * time.Millisecond}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventModified, "a.txt"))

	// The second event's timestamp is far outside the window, so the first
	// group closes during this call and its operation comes back directly.
	op := d.DetectStreaming(fe(base.Add(500*time.Millisecond), 2, EventModified, "a.txt"))
	require.NotNil(t, op)
	assert.Equal(t, OpModify, op.Type)
	assert.Equal(t, "a.txt", op.PrimaryPath)

	// The callback saw it too.
	assert.Equal(t, 1, rec.count())
}

func TestFlush_ForcesPendingGroupsClosed(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 10 * time.Second}, rec)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventCreated, ".a.txt.tmp.1"))
	d.AddEvent(feMove(base.Add(5*time.Millisecond), 2, ".a.txt.tmp.1", "a.txt"))
	d.AddEvent(fe(base.Add(8*time.Millisecond), 3, EventDeleted, "old.log"))

	ops := d.Flush()
	require.Len(t, ops, 2)
	assert.Equal(t, OpAtomicSave, ops[0].Type)
	assert.Equal(t, OpDelete, ops[1].Type)

	// Flush also feeds the callback, and leaves nothing pending.
	assert.Equal(t, 2, rec.count())
	assert.Empty(t, d.Flush())
}

func TestStreaming_BatchEquivalence(t *testing.T) {
	base := time.Now()
	events := []FileEvent{
		fe(base, 1, EventCreated, ".f.py.tmp.1"),
		fe(base.Add(10*time.Millisecond), 2, EventModified, ".f.py.tmp.1"),
		feMove(base.Add(20*time.Millisecond), 3, ".f.py.tmp.1", "f.py"),
		fe(base.Add(30*time.Millisecond), 4, EventCreated, "notes.md"),
		fe(base.Add(40*time.Millisecond), 5, EventDeleted, "trash.log"),
		fe(base.Add(50*time.Millisecond), 6, EventCreated, "docs/a.md"),
		fe(base.Add(55*time.Millisecond), 7, EventCreated, "docs/b.md"),
		fe(base.Add(60*time.Millisecond), 8, EventCreated, "docs/c.md"),
	}

	batch := newTestDetector(t, DetectorConfig{TimeWindow: 5 * time.Second})
	want := batch.Detect(events)

	rec := &opRecorder{}
	// A long window keeps auto-flush out of the picture; Flush drains.
	stream := newStreamingDetector(t, DetectorConfig{TimeWindow: 5 * time.Second}, rec)
	for _, e := range events {
		stream.AddEvent(e)
	}
	stream.Flush()
	got := rec.all()

	keyOf := func(op FileOperation) string {
		return string(op.Type) + "|" + op.PrimaryPath
	}
	wantKeys := map[string]int{}
	for _, op := range want {
		wantKeys[keyOf(op)]++
	}
	gotKeys := map[string]int{}
	for _, op := range got {
		gotKeys[keyOf(op)]++
	}
	assert.Equal(t, wantKeys, gotKeys,
		"streaming plus flush must match one-shot batch detection")
}

func TestStreaming_AutoFlushDeliversInEventOrder(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	// Event timestamps run opposite to arrival order, and the paths live in
	// separate directories so nothing merges. The callback must still see
	// the operations ordered by event time, not by which timer fired first.
	base := time.Now()
	d.AddEvent(fe(base.Add(30*time.Millisecond), 1, EventModified, "north/file3.txt"))
	d.AddEvent(fe(base.Add(20*time.Millisecond), 2, EventModified, "east/file2.txt"))
	d.AddEvent(fe(base.Add(10*time.Millisecond), 3, EventModified, "south/file1.txt"))
	d.AddEvent(fe(base, 4, EventModified, "west/file0.txt"))

	require.Eventually(t, func() bool { return rec.count() == 4 },
		time.Second, 10*time.Millisecond)

	ops := rec.all()
	want := []string{"west/file0.txt", "south/file1.txt", "east/file2.txt", "north/file3.txt"}
	for i, op := range ops {
		assert.Equal(t, want[i], op.PrimaryPath, "callback order must follow event time")
	}
	for i := 1; i < len(ops); i++ {
		assert.False(t, ops[i].StartTime.Before(ops[i-1].StartTime),
			"start times must be non-decreasing across callbacks")
	}
}

func TestStreaming_AutoFlushMergesSiblingBatch(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 100 * time.Millisecond}, rec)

	// Four sibling files touched inside one window. No Flush call: the
	// auto-flush path alone must coalesce them into a single batch.
	base := time.Now()
	d.AddEvent(fe(base, 1, EventModified, "src/a.go"))
	d.AddEvent(fe(base.Add(10*time.Millisecond), 2, EventModified, "src/b.go"))
	d.AddEvent(fe(base.Add(20*time.Millisecond), 3, EventModified, "src/c.go"))
	d.AddEvent(fe(base.Add(30*time.Millisecond), 4, EventModified, "src/d.go"))

	require.Eventually(t, func() bool { return rec.count() >= 1 },
		time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	ops := rec.all()
	require.Len(t, ops, 1, "sibling edits must surface as one operation")
	op := ops[0]
	assert.Equal(t, OpBatchUpdate, op.Type)
	assert.Equal(t, 4, op.EventCount)
	assert.Len(t, op.FilesAffected, 4)
	assert.Equal(t, "src/a.go", op.PrimaryPath)
}

func TestStreaming_CloseCancelsTimers(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 50 * time.Millisecond}, rec)

	d.AddEvent(fe(time.Now(), 1, EventModified, "doomed.txt"))
	d.Close()

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, rec.count(), "nothing may fire after Close")
}

func TestStreaming_PanickingCallbackContained(t *testing.T) {
	var calls int
	var mu sync.Mutex
	d, err := NewDetector(DetectorConfig{TimeWindow: 50 * time.Millisecond}, testLogger(t),
		func(FileOperation) {
			mu.Lock()
			calls++
			mu.Unlock()
			panic("consumer bug")
		})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	base := time.Now()
	d.AddEvent(fe(base, 1, EventModified, "a.txt"))
	d.AddEvent(fe(base.Add(2*time.Millisecond), 2, EventDeleted, "b.txt"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 10*time.Millisecond)

	// Detector state survived both panics.
	assert.Empty(t, d.Flush())
}

func TestStreaming_ConcurrentProducers(t *testing.T) {
	rec := &opRecorder{}
	d := newStreamingDetector(t, DetectorConfig{TimeWindow: 10 * time.Second}, rec)

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	base := time.Now()
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seq := uint64(p*perProducer + i + 1)
				path := fmt.Sprintf("dir%d/file%d.txt", p, i)
				d.AddEvent(fe(base.Add(time.Duration(i)*time.Millisecond), seq, EventModified, path))
			}
		}(p)
	}
	wg.Wait()

	ops := d.Flush()
	assert.NotEmpty(t, ops)

	total := 0
	for _, op := range ops {
		total += op.EventCount
	}
	assert.Equal(t, producers*perProducer, total,
		"every event must be folded into exactly one operation")
}
