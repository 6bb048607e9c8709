// Package version exposes build metadata for the diarizer daemon.
package version
