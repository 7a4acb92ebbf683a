// Package config loads filesift configuration from a YAML file with
// FILESIFT_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/filesift/filesift/internal/fileops"
)

var validate = validator.New()

// Config holds the full application configuration.
type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Watch    WatchConfig    `yaml:"watch"`
	Detector DetectorConfig `yaml:"detector"`
	Journal  JournalConfig  `yaml:"journal"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// WatchConfig controls which paths are monitored.
type WatchConfig struct {
	Paths     []string `yaml:"paths"`
	Recursive bool     `yaml:"recursive"`
	Ignore    []string `yaml:"ignore"`
}

// DetectorConfig mirrors the detection engine knobs.
type DetectorConfig struct {
	TimeWindow    time.Duration `yaml:"time_window" validate:"gte=0"`
	MinConfidence float64       `yaml:"min_confidence" validate:"gte=0,lte=1"`
	MinBatchSize  int           `yaml:"min_batch_size" validate:"gte=0"`
}

// JournalConfig controls operation persistence.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Recursive: true,
			Ignore:    []string{".git", "node_modules"},
		},
		Detector: DetectorConfig{
			TimeWindow:    fileops.DefaultTimeWindow,
			MinConfidence: fileops.DefaultMinConfidence,
			MinBatchSize:  fileops.DefaultMinBatchSize,
		},
		Journal: JournalConfig{
			Enabled: false,
		},
	}
}

// Load builds the configuration with precedence: environment variables,
// then the YAML file, then defaults. An empty path skips the file step;
// a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) //#nosec G304 -- config path comes from the user
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal enabled but no journal path configured")
	}
	return nil
}

// DetectorConfig converts the config section into the engine's own
// configuration type.
func (c *Config) DetectorConfig() fileops.DetectorConfig {
	return fileops.DetectorConfig{
		TimeWindow:    c.Detector.TimeWindow,
		MinConfidence: c.Detector.MinConfidence,
		MinBatchSize:  c.Detector.MinBatchSize,
	}
}

// applyEnv overlays FILESIFT_* environment variables onto the config.
func (c *Config) applyEnv() error {
	if v := os.Getenv("FILESIFT_LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("FILESIFT_LOG_FORMAT"); v != "" {
		c.Logger.Format = v
	}
	if v := os.Getenv("FILESIFT_WATCH_PATHS"); v != "" {
		c.Watch.Paths = splitList(v)
	}
	if v := os.Getenv("FILESIFT_WATCH_IGNORE"); v != "" {
		c.Watch.Ignore = splitList(v)
	}
	if v := os.Getenv("FILESIFT_TIME_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FILESIFT_TIME_WINDOW %q: %w", v, err)
		}
		c.Detector.TimeWindow = d
	}
	if v := os.Getenv("FILESIFT_MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FILESIFT_MIN_CONFIDENCE %q: %w", v, err)
		}
		c.Detector.MinConfidence = f
	}
	if v := os.Getenv("FILESIFT_MIN_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FILESIFT_MIN_BATCH_SIZE %q: %w", v, err)
		}
		c.Detector.MinBatchSize = n
	}
	if v := os.Getenv("FILESIFT_JOURNAL_PATH"); v != "" {
		c.Journal.Enabled = true
		c.Journal.Path = v
	}
	return nil
}

// expandPaths expands ~ and makes watch and journal paths absolute.
func (c *Config) expandPaths() error {
	for i, p := range c.Watch.Paths {
		expanded, err := expandPath(p)
		if err != nil {
			return fmt.Errorf("invalid watch path %q: %w", p, err)
		}
		c.Watch.Paths[i] = expanded
	}
	if c.Journal.Path != "" {
		expanded, err := expandPath(c.Journal.Path)
		if err != nil {
			return fmt.Errorf("invalid journal path %q: %w", c.Journal.Path, err)
		}
		c.Journal.Path = expanded
	}
	return nil
}

// expandPath expands a leading ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
