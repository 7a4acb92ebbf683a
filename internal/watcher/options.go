package watcher

import (
	"path/filepath"
	"strings"
)

// Options configures the file watcher behavior.
type Options struct {
	// IgnorePatterns are glob patterns matched against path components.
	IgnorePatterns []string

	// IgnoreHidden drops dotfiles. Off by default: editors write their
	// temp files as dotfiles and the detector needs to see them.
	IgnoreHidden bool

	// Recursive watches subdirectories of watched directories, including
	// directories created while watching.
	Recursive bool

	// BufferSize is the event channel capacity.
	BufferSize int
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.BufferSize == 0 {
		o.BufferSize = 256
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".git",
			"node_modules",
			".DS_Store",
			"Thumbs.db",
		}
	}
}

// shouldIgnore checks if a path matches the ignore rules.
func (o *Options) shouldIgnore(path string) bool {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if o.IgnoreHidden && strings.HasPrefix(part, ".") {
			return true
		}
		for _, pattern := range o.IgnorePatterns {
			matched, err := filepath.Match(pattern, part)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}
