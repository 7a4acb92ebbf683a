package quality

import (
	"time"

	"github.com/filesift/filesift/internal/fileops"
)

// StandardScenarios returns the built-in calibration suite. It covers the
// editor and tool patterns the detectors are tuned for, so a well configured
// detector should score a perfect report against it.
func StandardScenarios() []Scenario {
	base := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	var seq uint64

	ev := func(offset time.Duration, typ fileops.EventType, path string) fileops.FileEvent {
		seq++
		return fileops.FileEvent{
			Path: path,
			Type: typ,
			Metadata: fileops.FileEventMetadata{
				Timestamp:      base.Add(offset),
				SequenceNumber: seq,
			},
		}
	}
	mv := func(offset time.Duration, src, dest string) fileops.FileEvent {
		e := ev(offset, fileops.EventMoved, src)
		e.DestPath = dest
		return e
	}

	return []Scenario{
		{
			Name: "vscode atomic save",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventCreated, "src/.main.go.tmp.12345"),
				ev(10*time.Millisecond, fileops.EventModified, "src/.main.go.tmp.12345"),
				mv(20*time.Millisecond, "src/.main.go.tmp.12345", "src/main.go"),
			},
			Expected:           fileops.OpAtomicSave,
			ExpectedConfidence: 0.9,
		},
		{
			Name: "write then replace without rename",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventCreated, "notes.txt.tmp"),
				ev(5*time.Millisecond, fileops.EventModified, "notes.txt.tmp"),
				ev(15*time.Millisecond, fileops.EventCreated, "notes.txt"),
				ev(20*time.Millisecond, fileops.EventDeleted, "notes.txt.tmp"),
			},
			Expected: fileops.OpAtomicSave,
		},
		{
			Name: "safe write with tilde backup",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventCreated, "docs/report.md~"),
				ev(10*time.Millisecond, fileops.EventModified, "docs/report.md"),
			},
			Expected:           fileops.OpSafeWrite,
			ExpectedConfidence: 0.85,
		},
		{
			Name: "plain create",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventCreated, "assets/logo.png"),
			},
			Expected: fileops.OpCreate,
		},
		{
			Name: "repeated modify",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventModified, "config.yaml"),
				ev(50*time.Millisecond, fileops.EventModified, "config.yaml"),
			},
			Expected: fileops.OpModify,
		},
		{
			Name: "delete",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventDeleted, "obsolete.log"),
			},
			Expected: fileops.OpDelete,
		},
		{
			Name: "rename",
			Events: []fileops.FileEvent{
				mv(0, "old_name.go", "new_name.go"),
			},
			Expected:           fileops.OpRename,
			ExpectedConfidence: 0.9,
		},
		{
			Name: "formatter touches a package",
			Events: []fileops.FileEvent{
				ev(0, fileops.EventModified, "pkg/a.go"),
				ev(10*time.Millisecond, fileops.EventModified, "pkg/b.go"),
				ev(20*time.Millisecond, fileops.EventModified, "pkg/c.go"),
				ev(30*time.Millisecond, fileops.EventModified, "pkg/d.go"),
			},
			Expected: fileops.OpBatchUpdate,
		},
	}
}
