package resource

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Config holds the thresholds behind a processing-mode recommendation.
type Config struct {
	// MemoryFloorMB is the free memory below which processing is chunked.
	MemoryFloorMB uint64 `yaml:"memory_floor_mb" mapstructure:"memory_floor_mb"`
	// CPUCeiling is the CPU usage percentage above which processing is chunked.
	CPUCeiling float64 `yaml:"cpu_ceiling" mapstructure:"cpu_ceiling"`
	// ConstrainedWindow is the chunk length used under resource pressure.
	ConstrainedWindow time.Duration `yaml:"constrained_window" mapstructure:"constrained_window"`
	// NormalWindow is the chunk length used for long recordings.
	NormalWindow time.Duration `yaml:"normal_window" mapstructure:"normal_window"`
	// BatchLimit is the longest recording processed in one pass.
	BatchLimit time.Duration `yaml:"batch_limit" mapstructure:"batch_limit"`
	// SampleTTL is how long a sample is reused.
	SampleTTL time.Duration `yaml:"sample_ttl" mapstructure:"sample_ttl"`
	// CPUInterval is the CPU measurement window.
	CPUInterval time.Duration `yaml:"cpu_interval" mapstructure:"cpu_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MemoryFloorMB == 0 {
		c.MemoryFloorMB = 500
	}
	if c.CPUCeiling == 0 {
		c.CPUCeiling = 80
	}
	if c.ConstrainedWindow == 0 {
		c.ConstrainedWindow = 15 * time.Second
	}
	if c.NormalWindow == 0 {
		c.NormalWindow = 30 * time.Second
	}
	if c.BatchLimit == 0 {
		c.BatchLimit = 2 * time.Hour
	}
	if c.SampleTTL == 0 {
		c.SampleTTL = 5 * time.Second
	}
	if c.CPUInterval == 0 {
		c.CPUInterval = 200 * time.Millisecond
	}
}

// Validate checks the thresholds.
func (c *Config) Validate() error {
	v := validation.New().
		PositiveDuration("resource.constrained_window", c.ConstrainedWindow).
		PositiveDuration("resource.normal_window", c.NormalWindow).
		PositiveDuration("resource.batch_limit", c.BatchLimit).
		PositiveDuration("resource.sample_ttl", c.SampleTTL)
	v.Custom(c.CPUCeiling > 0 && c.CPUCeiling <= 100, "resource.cpu_ceiling", "must be in (0, 100]")
	return v.Err()
}
