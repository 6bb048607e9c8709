package database

import (
	"context"

	"github.com/ocobra/meeting-minutes-sub000/provider"
)

var _ provider.Provider = (*DB)(nil)

// Name returns the provider name.
func (d *DB) Name() string {
	return "sqlite"
}

// IsAvailable checks if the database connection is healthy.
func (d *DB) IsAvailable(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	return d.PingContext(ctx) == nil
}
