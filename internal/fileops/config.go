package fileops

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default configuration values.
const (
	DefaultTimeWindow    = 500 * time.Millisecond
	DefaultMinConfidence = 0.7
	DefaultMinBatchSize  = 3
)

var validate = validator.New()

// DetectorConfig tunes the detection pipeline.
type DetectorConfig struct {
	// TimeWindow is the maximum gap between two events for them to be
	// considered part of the same logical operation. The boundary is
	// inclusive: a gap of exactly TimeWindow still groups.
	TimeWindow time.Duration `validate:"gte=0"`

	// MinConfidence suppresses operations scoring below it. Must be in
	// [0, 1].
	MinConfidence float64 `validate:"gte=0,lte=1"`

	// MinBatchSize is the minimum number of sibling files touched in one
	// window before the cluster is classified as a batch update.
	MinBatchSize int `validate:"gte=0"`
}

// DefaultConfig returns the configuration used when callers pass the zero
// value.
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		TimeWindow:    DefaultTimeWindow,
		MinConfidence: DefaultMinConfidence,
		MinBatchSize:  DefaultMinBatchSize,
	}
}

// setDefaults fills unset fields with defaults, leaving explicit values
// alone.
func (c *DetectorConfig) setDefaults() {
	if c.TimeWindow == 0 {
		c.TimeWindow = DefaultTimeWindow
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.MinBatchSize == 0 {
		c.MinBatchSize = DefaultMinBatchSize
	}
}

// Validate fails fast on out-of-range values. Values are never silently
// clamped.
func (c DetectorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid detector config: %w", err)
	}
	return nil
}
