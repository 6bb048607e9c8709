package provider

import (
	"context"
	"time"
)

// Provider is the base interface every backend implements.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Closeable is implemented by providers that hold resources.
type Closeable interface {
	Close(ctx context.Context) error
}

// Factory creates a provider instance from configuration.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// Probe asks p whether it is available, giving up after timeout. A probe
// that times out or panics counts as unavailable.
func Probe(ctx context.Context, p Provider, timeout time.Duration) (ok bool) {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		defer func() {
			if recover() != nil {
				result <- false
			}
		}()
		result <- p.IsAvailable(ctx)
	}()

	select {
	case ok = <-result:
		return ok
	case <-ctx.Done():
		return false
	}
}
