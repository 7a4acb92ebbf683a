package fileops

import (
	"path/filepath"
	"regexp"
)

// Temp and backup naming conventions recognized by the detector. Editors
// disguise the real filename inside the temp name, so extraction anchors on
// the trailing synthetic suffix and preserves every interior dot of the
// original name (".my.module.py.tmp.42" -> "my.module.py").
var (
	// Editor atomic-save convention: optional leading dot, original name,
	// ".tmp." and an alphanumeric suffix. VSCode writes
	// ".document.txt.tmp.84"; other tools omit the leading dot.
	editorTempRe = regexp.MustCompile(`^\.?(.+)\.tmp\.[A-Za-z0-9]+$`)

	// Plain ".tmp" scratch files, hidden or not.
	plainTempRe = regexp.MustCompile(`^\.?(.+)\.tmp$`)

	// Vim swap files: ".name.swp" and rotated variants.
	vimSwapRe = regexp.MustCompile(`^\.?(.+)\.(swp|swo|swx)$`)

	// Vim-style trailing-tilde backups.
	tildeBackupRe = regexp.MustCompile(`^(.+)~$`)

	// Sibling backup copies left by safe-write patterns.
	suffixBackupRe = regexp.MustCompile(`^(.+)\.(bak|backup|orig)$`)

	// Emacs autosave files: "#name#".
	emacsAutosaveRe = regexp.MustCompile(`^#(.+)#$`)
)

// extractionOrder lists patterns from most to least specific; the first
// match wins so "name.tmp.84" is not mis-split by the plain ".tmp" rule.
var extractionOrder = []*regexp.Regexp{
	editorTempRe,
	vimSwapRe,
	plainTempRe,
	tildeBackupRe,
	suffixBackupRe,
	emacsAutosaveRe,
}

// IsTempFile reports whether path names a temporary or backup artifact of a
// save operation rather than a real user file.
func IsTempFile(path string) bool {
	base := filepath.Base(path)
	for _, re := range extractionOrder {
		if re.MatchString(base) {
			return true
		}
	}
	return false
}

// IsBackupFile reports whether path names a backup copy that a safe-write
// pattern leaves behind (trailing tilde or a .bak-style suffix).
func IsBackupFile(path string) bool {
	base := filepath.Base(path)
	return tildeBackupRe.MatchString(base) || suffixBackupRe.MatchString(base)
}

// ExtractBaseName recovers the original filename hidden inside a recognized
// temp or backup name. The second return is false when the name matches no
// recognized convention; that is a normal outcome, not an error.
func ExtractBaseName(path string) (string, bool) {
	base := filepath.Base(path)
	for _, re := range extractionOrder {
		if m := re.FindStringSubmatch(base); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// RealPathFor resolves a temp or backup path to the sibling path of the real
// target file, preserving the directory.
func RealPathFor(path string) (string, bool) {
	name, ok := ExtractBaseName(path)
	if !ok {
		return "", false
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." {
		return name, true
	}
	return filepath.Join(dir, name), true
}

// normalizeKey maps a path to the grouping key of its logical target, so a
// temp file and its eventual real file land in the same group even though
// the literal path string changes mid-operation.
func normalizeKey(path string) string {
	if real, ok := RealPathFor(path); ok {
		return real
	}
	return filepath.Clean(path)
}

// findRealFile picks the real (non-temp) target out of a group of events.
// Most recent real destination wins; base-name extraction from temp names is
// the fallback when the group never touched a real path directly.
func findRealFile(events []FileEvent) (string, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if d := events[i].DestPath; d != "" && !IsTempFile(d) {
			return d, true
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		if p := events[i].Path; !IsTempFile(p) {
			return p, true
		}
	}
	for _, e := range events {
		if real, ok := RealPathFor(e.Path); ok {
			return real, true
		}
	}
	return "", false
}
