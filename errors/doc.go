// Package errors provides the application error type used across the
// diarization core. AppError carries a machine-readable code, an HTTP status
// for the API layer and a retryable flag; Classify maps any error onto the
// recovery taxonomy (transient, permanent, consent, alignment, canceled).
package errors
