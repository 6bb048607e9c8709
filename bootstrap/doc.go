// Package bootstrap runs a long-lived diarizer process: it validates the
// configuration, starts registered components, waits for a shutdown signal
// and stops everything within a graceful timeout.
package bootstrap
