package di

import (
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filesift/filesift/internal/config"
	"github.com/filesift/filesift/internal/monitor"
)

func TestContainer_BuildsPipeline(t *testing.T) {
	dir := t.TempDir()
	injector := NewContainer("", []string{dir})

	m, err := do.Invoke[*monitor.Monitor](injector)
	require.NoError(t, err)
	assert.NotNil(t, m)

	require.Empty(t, injector.Shutdown().Errors)
}

func TestContainer_CLIPathsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FILESIFT_WATCH_PATHS", "/nonexistent/from/config")

	injector := NewContainer("", []string{dir})
	defer injector.Shutdown()

	// The config carries the bogus path, but the CLI path wins so the
	// watcher comes up cleanly.
	cfg, err := do.Invoke[*config.Config](injector)
	require.NoError(t, err)
	assert.Equal(t, []string{"/nonexistent/from/config"}, cfg.Watch.Paths)

	_, err = do.Invoke[*WatcherHandle](injector)
	require.NoError(t, err)
}

func TestContainer_MissingWatchPathFails(t *testing.T) {
	injector := NewContainer("", []string{"/definitely/not/here"})
	defer injector.Shutdown()

	_, err := do.Invoke[*WatcherHandle](injector)
	require.Error(t, err)
}

func TestContainer_JournalDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	injector := NewContainer("", []string{dir})
	defer injector.Shutdown()

	h, err := do.Invoke[*JournalHandle](injector)
	require.NoError(t, err)
	assert.Nil(t, h.Journal)
}
