package confidence

import (
	"math"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Weights are the contributions of each signal to a score. They must sum
// to 1.
type Weights struct {
	LLM          float64 `yaml:"llm" mapstructure:"llm"`
	Pattern      float64 `yaml:"pattern" mapstructure:"pattern"`
	Plausibility float64 `yaml:"plausibility" mapstructure:"plausibility"`
	Segmentation float64 `yaml:"segmentation" mapstructure:"segmentation"`
}

func (w Weights) sum() float64 {
	return w.LLM + w.Pattern + w.Plausibility + w.Segmentation
}

// Config configures the scorer.
type Config struct {
	Weights Weights `yaml:"weights" mapstructure:"weights"`
	// AcceptThreshold is the inclusive minimum score for assigning a name.
	AcceptThreshold float64 `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	// LowThreshold marks names rendered with an uncertainty indicator.
	LowThreshold float64 `yaml:"low_threshold" mapstructure:"low_threshold"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Weights == (Weights{}) {
		c.Weights = Weights{LLM: 0.35, Pattern: 0.25, Plausibility: 0.20, Segmentation: 0.20}
	}
	if c.AcceptThreshold == 0 {
		c.AcceptThreshold = 0.7
	}
	if c.LowThreshold == 0 {
		c.LowThreshold = 0.5
	}
}

// Validate checks the weights and thresholds.
func (c *Config) Validate() error {
	v := validation.New().
		Unit("confidence.accept_threshold", c.AcceptThreshold).
		Unit("confidence.low_threshold", c.LowThreshold).
		Unit("confidence.weights.llm", c.Weights.LLM).
		Unit("confidence.weights.pattern", c.Weights.Pattern).
		Unit("confidence.weights.plausibility", c.Weights.Plausibility).
		Unit("confidence.weights.segmentation", c.Weights.Segmentation)
	v.Custom(math.Abs(c.Weights.sum()-1) < 1e-9, "confidence.weights", "must sum to 1")
	return v.Err()
}
