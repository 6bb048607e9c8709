package observability

import (
	"context"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/provider"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name     string            `json:"name"`
	Status   HealthStatus      `json:"status"`
	Message  string            `json:"message,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
	Optional bool              `json:"optional,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status
// if needed. An optional component that is down only degrades the service.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	status := ch.Status
	if ch.Optional && status == HealthStatusDown {
		status = HealthStatusDegraded
	}
	switch status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// ProbeHealth probes p within timeout. Optional marks backends the service
// can run without, such as external ones that have a local fallback.
func ProbeHealth(ctx context.Context, p provider.Provider, timeout time.Duration, optional bool) Health {
	h := Health{Name: p.Name(), Status: HealthStatusUp, Optional: optional}
	if !provider.Probe(ctx, p, timeout) {
		h.Status = HealthStatusDown
		h.Message = "not reachable"
	}
	return h
}
