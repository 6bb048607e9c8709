package alignment

import "github.com/ocobra/meeting-minutes-sub000/validation"

// Config holds alignment tolerances in seconds.
type Config struct {
	// OverlapTolerance is the minimum overlap, exclusive, for a segment to
	// claim a word.
	OverlapTolerance float64 `yaml:"overlap_tolerance" mapstructure:"overlap_tolerance"`
	// GapFill is the longest pause after a segment that still inherits its
	// label.
	GapFill float64 `yaml:"gap_fill" mapstructure:"gap_fill"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.OverlapTolerance == 0 {
		c.OverlapTolerance = 0.05
	}
	if c.GapFill == 0 {
		c.GapFill = 0.5
	}
}

// Validate checks the tolerances.
func (c *Config) Validate() error {
	return validation.New().
		NonNegative("alignment.overlap_tolerance", c.OverlapTolerance).
		NonNegative("alignment.gap_fill", c.GapFill).
		Err()
}
