package component

import (
	"context"

	"github.com/ocobra/meeting-minutes-sub000/observability"
)

// Component is a lifecycle-managed part of the process.
type Component interface {
	// Name returns the unique name used for registration.
	Name() string

	// Start brings the component up. It must return once the component is
	// ready; long-running work continues in the background.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health reports the component's current state.
	Health(ctx context.Context) observability.Health
}

// Func adapts a pair of functions into a Component. A nil StartFunc or
// StopFunc is a no-op.
type Func struct {
	ComponentName string
	StartFunc     func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
	HealthFunc    func(ctx context.Context) observability.Health
}

var _ Component = (*Func)(nil)

func (f *Func) Name() string { return f.ComponentName }

func (f *Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

func (f *Func) Health(ctx context.Context) observability.Health {
	if f.HealthFunc == nil {
		return observability.Health{Name: f.ComponentName, Status: observability.HealthStatusUp}
	}
	return f.HealthFunc(ctx)
}
