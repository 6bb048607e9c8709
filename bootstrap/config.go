package bootstrap

import (
	"github.com/ocobra/meeting-minutes-sub000/config"
)

// Config is the constraint for application configuration types. Any
// struct embedding config.ServiceConfig satisfies GetServiceConfig via
// promotion.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
