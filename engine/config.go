package engine

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Config holds pipeline settings.
type Config struct {
	// InferenceTimeout bounds each segmentation or identification call.
	InferenceTimeout time.Duration `yaml:"inference_timeout" mapstructure:"inference_timeout"`
	// ContinuityThreshold is the voiceprint similarity at which a speaker
	// in one chunk keeps the label it had in an earlier chunk.
	ContinuityThreshold float64 `yaml:"continuity_threshold" mapstructure:"continuity_threshold"`
	// ChunkWindow is the window used when chunked mode is forced.
	ChunkWindow time.Duration `yaml:"chunk_window" mapstructure:"chunk_window"`
	// SampleRate is passed to segmenters when the audio does not say.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.InferenceTimeout == 0 {
		c.InferenceTimeout = 300 * time.Second
	}
	if c.ContinuityThreshold == 0 {
		c.ContinuityThreshold = 0.9
	}
	if c.ChunkWindow == 0 {
		c.ChunkWindow = 30 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	return validation.New().
		PositiveDuration("engine.inference_timeout", c.InferenceTimeout).
		PositiveDuration("engine.chunk_window", c.ChunkWindow).
		Unit("engine.continuity_threshold", c.ContinuityThreshold).
		Min("engine.sample_rate", c.SampleRate, 1).
		Err()
}
