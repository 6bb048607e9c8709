package llm

import (
	"time"
)

// Config holds configuration for creating an LLM adapter.
// It is provider-agnostic; the Dialect field selects the provider mapping.
type Config struct {
	// Name identifies this adapter instance (e.g., "local-llm", "external-llm").
	Name string `yaml:"name" mapstructure:"name"`

	// Dialect selects the provider mapping (e.g., "ollama", "openai").
	Dialect string `yaml:"dialect" mapstructure:"dialect"`

	// BaseURL is the provider's API base URL (e.g., "http://localhost:11434").
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Model is the default model to use.
	Model string `yaml:"model" mapstructure:"model"`

	// Temperature is the default sampling temperature (0.0-1.0).
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default maximum tokens for responses. 0 means provider default.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout for HTTP requests. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// APIKey is sent as a Bearer token when set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Headers are additional HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// applyDefaults sets default values for unset config fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect + "-llm"
	}
}

// Enabled reports whether the config names a backend.
func (c Config) Enabled() bool { return c.Dialect != "" && c.BaseURL != "" }
