package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filesift/filesift/internal/fileops"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Watch.Recursive)
	assert.Equal(t, fileops.DefaultTimeWindow, cfg.Detector.TimeWindow)
	assert.Equal(t, fileops.DefaultMinConfidence, cfg.Detector.MinConfidence)
	assert.Equal(t, fileops.DefaultMinBatchSize, cfg.Detector.MinBatchSize)
	assert.False(t, cfg.Journal.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filesift.yaml")
	content := `
logger:
  level: debug
  format: json
watch:
  paths:
    - ` + dir + `
  recursive: false
  ignore:
    - vendor
detector:
  time_window: 250ms
  min_confidence: 0.8
  min_batch_size: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, []string{dir}, cfg.Watch.Paths)
	assert.False(t, cfg.Watch.Recursive)
	assert.Equal(t, []string{"vendor"}, cfg.Watch.Ignore)
	assert.Equal(t, 250*time.Millisecond, cfg.Detector.TimeWindow)
	assert.Equal(t, 0.8, cfg.Detector.MinConfidence)
	assert.Equal(t, 5, cfg.Detector.MinBatchSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FILESIFT_LOG_LEVEL", "warn")
	t.Setenv("FILESIFT_TIME_WINDOW", "2s")
	t.Setenv("FILESIFT_MIN_CONFIDENCE", "0.9")
	t.Setenv("FILESIFT_MIN_BATCH_SIZE", "7")
	t.Setenv("FILESIFT_WATCH_PATHS", "/tmp/a, /tmp/b")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 2*time.Second, cfg.Detector.TimeWindow)
	assert.Equal(t, 0.9, cfg.Detector.MinConfidence)
	assert.Equal(t, 7, cfg.Detector.MinBatchSize)
	assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, cfg.Watch.Paths)
}

func TestLoad_EnvJournalPath(t *testing.T) {
	t.Setenv("FILESIFT_JOURNAL_PATH", "/tmp/filesift-journal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/filesift-journal", cfg.Journal.Path)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("FILESIFT_TIME_WINDOW", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logger.Level = "silly" }},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }},
		{"negative window", func(c *Config) { c.Detector.TimeWindow = -time.Second }},
		{"confidence above one", func(c *Config) { c.Detector.MinConfidence = 1.5 }},
		{"journal enabled without path", func(c *Config) { c.Journal.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDetectorConfig(t *testing.T) {
	cfg := Default()
	cfg.Detector.TimeWindow = time.Second

	dc := cfg.DetectorConfig()
	assert.Equal(t, time.Second, dc.TimeWindow)
	assert.Equal(t, cfg.Detector.MinConfidence, dc.MinConfidence)
	assert.Equal(t, cfg.Detector.MinBatchSize, dc.MinBatchSize)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/projects")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "projects"), got)

	got, err = expandPath("/already/absolute")
	require.NoError(t, err)
	assert.Equal(t, "/already/absolute", got)
}
