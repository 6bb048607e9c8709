// Package component manages the lifecycle of the diarizer's long-running
// parts: the HTTP server, the diarization service and background workers.
//
// Components start in registration order and stop in reverse. A failed
// start rolls back the components that already started.
package component
