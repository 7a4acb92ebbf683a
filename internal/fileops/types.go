// Package fileops reconstructs high-level file operations from streams of
// raw filesystem events. Editors and build tools rarely write a file in one
// step; they emit multi-step sequences (write temp, fsync, rename; write
// backup, rewrite original; batch formatter sweeps) that have to be inferred
// from temporal and naming correlation rather than assumed.
package fileops

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// EventType is the kind of raw filesystem notification.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
	EventMoved    EventType = "moved"
)

// FileEventMetadata carries per-event bookkeeping assigned by the producer.
// Timestamps are assigned at adaptation time, not taken from the OS, because
// filesystem timestamp resolution is coarser than event production rate.
type FileEventMetadata struct {
	// Timestamp is when the producer observed the event.
	Timestamp time.Time

	// SequenceNumber is monotonically increasing and breaks ties between
	// events with equal timestamps.
	SequenceNumber uint64

	// SizeBefore and SizeAfter are the file sizes around the event, when
	// known. Nil when unknown or not applicable (e.g. deletes).
	SizeBefore *int64
	SizeAfter  *int64

	// ProcessName is the process believed to have caused the event, when
	// the producer can tell.
	ProcessName string
}

// SizeDelta returns the byte change implied by the event. The second return
// is false when either side is unknown.
func (m FileEventMetadata) SizeDelta() (int64, bool) {
	if m.SizeBefore == nil || m.SizeAfter == nil {
		return 0, false
	}
	return *m.SizeAfter - *m.SizeBefore, true
}

// FileEvent is a single raw filesystem notification. Events are created by
// the watcher (or a test generator) and never mutated afterward.
type FileEvent struct {
	// Path is the filesystem path being acted on.
	Path string

	// Type is the kind of event.
	Type EventType

	// Metadata holds timestamp, sequence number and size information.
	Metadata FileEventMetadata

	// DestPath is the new location, populated only for moved events.
	DestPath string
}

// Time returns the event timestamp.
func (e FileEvent) Time() time.Time {
	return e.Metadata.Timestamp
}

// Sequence returns the producer-assigned sequence number.
func (e FileEvent) Sequence() uint64 {
	return e.Metadata.SequenceNumber
}

// sortEvents orders events by (timestamp, sequence number) ascending.
// Sequence number is the tie-breaker for equal timestamps.
func sortEvents(events []FileEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Time(), events[j].Time()
		if ti.Equal(tj) {
			return events[i].Sequence() < events[j].Sequence()
		}
		return ti.Before(tj)
	})
}

// OperationType classifies a reconstructed operation.
type OperationType string

const (
	OpCreate      OperationType = "create"
	OpModify      OperationType = "modify"
	OpDelete      OperationType = "delete"
	OpAtomicSave  OperationType = "atomic_save"
	OpSafeWrite   OperationType = "safe_write"
	OpBatchUpdate OperationType = "batch_update"
	OpRename      OperationType = "rename"
	OpUnknown     OperationType = "unknown"
)

// specificity ranks operation types for tie-breaking: pattern matches
// outrank the generic single-event fallbacks.
func (t OperationType) specificity() int {
	switch t {
	case OpAtomicSave, OpSafeWrite, OpBatchUpdate, OpRename:
		return 2
	case OpCreate, OpModify, OpDelete:
		return 1
	default:
		return 0
	}
}

// FileOperation is a reconstructed high-level operation. Operations are
// built exclusively by the detection pipeline and are read-only afterward.
type FileOperation struct {
	// Type is the classified operation kind.
	Type OperationType `json:"type"`

	// PrimaryPath is the final, real target of the operation. It is never
	// a path the naming heuristics recognize as a temp or backup artifact.
	PrimaryPath string `json:"primary_path"`

	// FilesAffected lists every real path touched, always including
	// PrimaryPath.
	FilesAffected []string `json:"files_affected"`

	// Confidence is the detector's certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// IsAtomic is true when the event sequence guarantees no observer saw
	// a partially written file at the final path.
	IsAtomic bool `json:"is_atomic"`

	// IsSafe is true when a backup or equivalent safety net existed before
	// the destructive step.
	IsSafe bool `json:"is_safe"`

	// HasBackup is true when a backup copy of the target was left behind.
	HasBackup bool `json:"has_backup"`

	// EventCount is the number of raw events folded into this operation.
	EventCount int `json:"event_count"`

	// StartTime and EndTime span the first to last contributing event.
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration is the time spanned by the contributing events.
func (o FileOperation) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// Description renders a short human-readable summary of the operation.
func (o FileOperation) Description() string {
	name := filepath.Base(o.PrimaryPath)
	switch o.Type {
	case OpAtomicSave:
		return fmt.Sprintf("atomic save of %s", name)
	case OpSafeWrite:
		return fmt.Sprintf("safe write of %s (backup kept)", name)
	case OpBatchUpdate:
		return fmt.Sprintf("batch update of %d files near %s", len(o.FilesAffected), name)
	case OpRename:
		return fmt.Sprintf("rename to %s", name)
	case OpCreate:
		return fmt.Sprintf("created %s", name)
	case OpModify:
		return fmt.Sprintf("modified %s", name)
	case OpDelete:
		return fmt.Sprintf("deleted %s", name)
	default:
		return fmt.Sprintf("unclassified change to %s", name)
	}
}

// newOperation assembles a FileOperation from a classified group. The
// events slice must be non-empty and ordered. Paths in filesAffected are
// deduplicated and the primary path is always included.
func newOperation(t OperationType, primary string, events []FileEvent, confidence float64, filesAffected ...string) FileOperation {
	seen := map[string]bool{primary: true}
	files := []string{primary}
	for _, p := range filesAffected {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		files = append(files, p)
	}

	return FileOperation{
		Type:          t,
		PrimaryPath:   primary,
		FilesAffected: files,
		Confidence:    clampConfidence(confidence),
		EventCount:    len(events),
		StartTime:     events[0].Time(),
		EndTime:       events[len(events)-1].Time(),
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
