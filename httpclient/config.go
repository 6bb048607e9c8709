package httpclient

import (
	"time"

	"github.com/ocobra/meeting-minutes-sub000/validation"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// Name identifies the backend in errors and logs.
	Name string
	// BaseURL is prepended to every request path.
	BaseURL string
	// Timeout bounds a whole request. Defaults to 30s.
	Timeout time.Duration
	// Headers are applied to every request.
	Headers map[string]string
	// Auth is applied to every request unless the request overrides it.
	Auth *AuthConfig
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("httpclient.base_url", c.BaseURL).
		PositiveDuration("httpclient.timeout", c.Timeout).
		Err()
}
