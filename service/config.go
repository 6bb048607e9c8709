package service

import (
	"fmt"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/alignment"
	"github.com/ocobra/meeting-minutes-sub000/config"
	"github.com/ocobra/meeting-minutes-sub000/confidence"
	"github.com/ocobra/meeting-minutes-sub000/database"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/diarization/local"
	"github.com/ocobra/meeting-minutes-sub000/diarization/pyannote"
	"github.com/ocobra/meeting-minutes-sub000/engine"
	"github.com/ocobra/meeting-minutes-sub000/identification"
	"github.com/ocobra/meeting-minutes-sub000/identity"
	"github.com/ocobra/meeting-minutes-sub000/llm"
	"github.com/ocobra/meeting-minutes-sub000/observability"
	"github.com/ocobra/meeting-minutes-sub000/recovery"
	"github.com/ocobra/meeting-minutes-sub000/resource"
	"github.com/ocobra/meeting-minutes-sub000/router"
	"github.com/ocobra/meeting-minutes-sub000/server"
	"github.com/ocobra/meeting-minutes-sub000/validation"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the complete diarizerd configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTP      server.Config        `yaml:"http" mapstructure:"http"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Store     StoreConfig          `yaml:"store" mapstructure:"store"`
	Database  database.Config      `yaml:"database" mapstructure:"database"`

	Defaults   Settings          `yaml:"defaults" mapstructure:"defaults"`
	Router     router.Config     `yaml:"router" mapstructure:"router"`
	Alignment  alignment.Config  `yaml:"alignment" mapstructure:"alignment"`
	Confidence confidence.Config `yaml:"confidence" mapstructure:"confidence"`
	Identity   identity.Config   `yaml:"identity" mapstructure:"identity"`
	Recovery   recovery.Policy   `yaml:"recovery" mapstructure:"recovery"`
	Resource   resource.Config   `yaml:"resource" mapstructure:"resource"`
	Engine     engine.Config     `yaml:"engine" mapstructure:"engine"`
	Backends   BackendsConfig    `yaml:"backends" mapstructure:"backends"`
	Jobs       JobsConfig        `yaml:"jobs" mapstructure:"jobs"`
}

// StoreConfig selects where meetings and profiles are kept.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=sqlite memory"`
}

// BackendsConfig configures the segmentation and identification backends.
// A backend with no binary or URL is not built.
type BackendsConfig struct {
	Local          local.Config          `yaml:"local" mapstructure:"local"`
	Pyannote       pyannote.Config       `yaml:"pyannote" mapstructure:"pyannote"`
	LocalLLM       llm.Config            `yaml:"local_llm" mapstructure:"local_llm"`
	ExternalLLM    llm.Config            `yaml:"external_llm" mapstructure:"external_llm"`
	Identification identification.Config `yaml:"identification" mapstructure:"identification"`
}

// JobsConfig bounds background diarization jobs.
type JobsConfig struct {
	// MaxConcurrent is the number of pipelines that may run at once.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// QueueTimeout is how long a job waits for a free slot before failing.
	QueueTimeout time.Duration `yaml:"queue_timeout" mapstructure:"queue_timeout"`
	// Retention is how long finished jobs stay queryable.
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *JobsConfig) ApplyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 2
	}
	if c.QueueTimeout == 0 {
		c.QueueTimeout = 10 * time.Minute
	}
	if c.Retention == 0 {
		c.Retention = time.Hour
	}
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "diarizerd"
	}
	c.ServiceConfig.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	c.Database.ApplyDefaults()
	c.Router.ApplyDefaults()
	c.Alignment.ApplyDefaults()
	c.Confidence.ApplyDefaults()
	c.Identity.ApplyDefaults()
	c.Recovery.ApplyDefaults()
	c.Resource.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Backends.Identification.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	if c.Defaults.Policy == "" {
		c.Defaults.Policy = diarization.LocalOnly
	}
	if c.Defaults.Mode == "" {
		c.Defaults.Mode = diarization.ModeAuto
	}
	if c.Defaults.ConfidenceThreshold == 0 {
		c.Defaults.ConfidenceThreshold = c.Confidence.AcceptThreshold
	}
}

// Validate checks every section and reports the first failure.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Store); err != nil {
		return err
	}
	if err := validation.Validate(c.Jobs); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"http", c.HTTP.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"database", c.Database.Validate},
		{"defaults", c.Defaults.Validate},
		{"router", c.Router.Validate},
		{"alignment", c.Alignment.Validate},
		{"confidence", c.Confidence.Validate},
		{"identity", c.Identity.Validate},
		{"recovery", c.Recovery.Validate},
		{"resource", c.Resource.Validate},
		{"engine", c.Engine.Validate},
	}
	for _, s := range sections {
		if s.name == "database" && c.Store.Driver == StoreMemory {
			continue
		}
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// Settings are the runtime-adjustable pipeline defaults.
type Settings struct {
	Policy              diarization.PrivacyMode    `json:"policy" yaml:"policy" mapstructure:"policy" validate:"privacy_mode"`
	ConfidenceThreshold float64                    `json:"confidence_threshold" yaml:"confidence_threshold" mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
	Mode                diarization.ProcessingMode `json:"mode" yaml:"mode" mapstructure:"mode" validate:"processing_mode"`
}

// Validate checks the settings.
func (s Settings) Validate() error {
	return validation.Validate(s)
}
