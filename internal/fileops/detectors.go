package fileops

import "path/filepath"

// Detector recognizes one operation shape from an ordered group of events
// believed to refer to the same logical target. A detector that cannot
// classify a group returns false; that is routine, not an error.
type Detector interface {
	// Name identifies the detector in logs.
	Name() string

	// Priority orders detectors from most to least specific.
	Priority() int

	// Detect returns a scored candidate operation for the group, or false
	// when the group does not match this detector's shape.
	Detect(group []FileEvent) (FileOperation, bool)
}

// builtinDetectors returns the closed detector set in priority order. The
// set is fixed; there is no runtime registration.
func builtinDetectors() []Detector {
	ds := []Detector{
		atomicSaveDetector{},
		safeWriteDetector{},
		renameDetector{},
		simpleDetector{},
	}
	// Already ordered by construction, priorities kept explicit for
	// tie-breaking and logging.
	return ds
}

// isSaveTempArtifact reports whether path looks like the scratch side of a
// save pattern (editor temp, plain .tmp, swap, autosave) as opposed to a
// backup copy. Backups are handled by the safe-write detector.
func isSaveTempArtifact(path string) bool {
	base := filepath.Base(path)
	return editorTempRe.MatchString(base) ||
		plainTempRe.MatchString(base) ||
		vimSwapRe.MatchString(base) ||
		emacsAutosaveRe.MatchString(base)
}

// atomicSaveDetector matches the write-temp-then-rename pattern: created or
// modified events on a temp path followed by a move whose destination is the
// real path.
type atomicSaveDetector struct{}

func (atomicSaveDetector) Name() string  { return "atomic_save" }
func (atomicSaveDetector) Priority() int { return 90 }

func (atomicSaveDetector) Detect(group []FileEvent) (FileOperation, bool) {
	var move *FileEvent
	sawTempCreate := false
	sawTempModify := false

	for i := range group {
		e := group[i]
		switch e.Type {
		case EventMoved:
			if e.DestPath == "" {
				continue // malformed move, skip the event not the group
			}
			if isSaveTempArtifact(e.Path) && !IsTempFile(e.DestPath) {
				move = &group[i]
			}
		case EventCreated:
			if isSaveTempArtifact(e.Path) {
				sawTempCreate = true
			}
		case EventModified:
			if isSaveTempArtifact(e.Path) {
				sawTempModify = true
			}
		}
	}

	if move != nil {
		// Full create -> (modify) -> move shape scores highest; a bare
		// move of a temp file is still convincing but less so.
		confidence := 0.85
		if sawTempCreate {
			confidence += 0.10
		}
		if sawTempModify {
			confidence += 0.05
		}
		if confidence > 0.98 {
			confidence = 0.98
		}

		primary := move.DestPath
		if primary == "" {
			if real, ok := RealPathFor(move.Path); ok {
				primary = real
			}
		}

		op := newOperation(OpAtomicSave, primary, group, confidence)
		op.IsAtomic = true
		op.IsSafe = true
		return op, true
	}

	// Rename-free variant: write to temp, create the real file, drop the
	// temp. Seen from tools that copy rather than rename.
	if sawTempCreate || sawTempModify {
		realWrite := false
		tempDeleted := false
		for _, e := range group {
			if isSaveTempArtifact(e.Path) && e.Type == EventDeleted {
				tempDeleted = true
			}
			if !IsTempFile(e.Path) && (e.Type == EventCreated || e.Type == EventModified) {
				realWrite = true
			}
		}
		if realWrite && tempDeleted {
			primary, ok := findRealFile(group)
			if !ok {
				return FileOperation{}, false
			}
			op := newOperation(OpAtomicSave, primary, group, 0.80)
			op.IsAtomic = true
			op.IsSafe = true
			return op, true
		}
	}

	return FileOperation{}, false
}

// safeWriteDetector matches write patterns that leave a backup copy of the
// target: a sibling backup path (trailing tilde or .bak-style suffix)
// created around a write to the original, with the original surviving.
type safeWriteDetector struct{}

func (safeWriteDetector) Name() string  { return "safe_write" }
func (safeWriteDetector) Priority() int { return 80 }

func (safeWriteDetector) Detect(group []FileEvent) (FileOperation, bool) {
	var backupSeen bool
	var lastReal *FileEvent

	for i := range group {
		e := group[i]
		if IsBackupFile(e.Path) && (e.Type == EventCreated || e.Type == EventModified) {
			backupSeen = true
			continue
		}
		if !IsTempFile(e.Path) {
			lastReal = &group[i]
		}
	}

	if !backupSeen || lastReal == nil {
		return FileOperation{}, false
	}

	confidence := 0.85
	if lastReal.Type == EventModified {
		// Original rewritten after the backup appeared: the canonical
		// safe-write shape.
		confidence = 0.90
	}
	if lastReal.Type == EventDeleted {
		// Original gone but a backup remains; still recoverable, less
		// certain this was a coordinated safe write.
		confidence = 0.75
	}

	op := newOperation(OpSafeWrite, lastReal.Path, group, confidence)
	op.IsSafe = true
	op.HasBackup = true
	return op, true
}

// renameDetector matches a plain move between two real paths, i.e. one that
// is not the tail of an atomic save.
type renameDetector struct{}

func (renameDetector) Name() string  { return "rename" }
func (renameDetector) Priority() int { return 70 }

func (renameDetector) Detect(group []FileEvent) (FileOperation, bool) {
	for i := range group {
		e := group[i]
		if e.Type != EventMoved || e.DestPath == "" {
			continue
		}
		if IsTempFile(e.Path) || IsTempFile(e.DestPath) {
			continue
		}
		op := newOperation(OpRename, e.DestPath, group, 0.90, e.Path)
		return op, true
	}
	return FileOperation{}, false
}

// simpleDetector is the generic fallback: classify the group by the plain
// create, modify or delete events it contains on real paths. Groups that
// only ever touched temp paths are noise and do not match.
type simpleDetector struct{}

func (simpleDetector) Name() string  { return "simple" }
func (simpleDetector) Priority() int { return 10 }

func (simpleDetector) Detect(group []FileEvent) (FileOperation, bool) {
	var real []FileEvent
	for _, e := range group {
		if e.Type == EventMoved {
			continue // moves belong to the rename and atomic detectors
		}
		if !IsTempFile(e.Path) {
			real = append(real, e)
		}
	}
	if len(real) == 0 {
		return FileOperation{}, false
	}

	last := real[len(real)-1]
	sawCreate := false
	for _, e := range real {
		if e.Type == EventCreated {
			sawCreate = true
		}
	}

	var (
		t          OperationType
		confidence float64
	)
	switch {
	case last.Type == EventDeleted:
		t, confidence = OpDelete, 0.75
	case sawCreate:
		t, confidence = OpCreate, 0.75
	case last.Type == EventModified:
		t, confidence = OpModify, 0.70
	default:
		t, confidence = OpUnknown, 0.60
	}

	op := newOperation(t, last.Path, group, confidence)
	return op, true
}
