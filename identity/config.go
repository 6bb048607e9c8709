package identity

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Config configures speaker identity resolution.
type Config struct {
	// ProfileMatchThreshold is the minimum voice-print similarity for a
	// voice profile to name a speaker.
	ProfileMatchThreshold float64 `yaml:"profile_match_threshold" mapstructure:"profile_match_threshold"`
	// Retention is how long a profile may go unseen before it is purged.
	// Negative disables purging.
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	// PurgeInterval is how often the background purger runs.
	PurgeInterval time.Duration `yaml:"purge_interval" mapstructure:"purge_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ProfileMatchThreshold == 0 {
		c.ProfileMatchThreshold = 0.8
	}
	if c.Retention == 0 {
		c.Retention = 90 * 24 * time.Hour
	}
	if c.PurgeInterval == 0 {
		c.PurgeInterval = 24 * time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Unit("identity.profile_match_threshold", c.ProfileMatchThreshold).
		PositiveDuration("identity.purge_interval", c.PurgeInterval).
		Err()
}
