package router

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Config configures backend routing.
type Config struct {
	// ProbeTimeout bounds one external availability probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	// CacheTTL is how long a PreferExternal decision is reused.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	// BreakerFailures is the number of consecutive external failures that
	// take a backend out of rotation.
	BreakerFailures int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	// BreakerCooldown is how long a failing backend stays out of rotation.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 3
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		PositiveDuration("router.probe_timeout", c.ProbeTimeout).
		PositiveDuration("router.cache_ttl", c.CacheTTL).
		Min("router.breaker_failures", c.BreakerFailures, 1).
		PositiveDuration("router.breaker_cooldown", c.BreakerCooldown).
		Err()
}
