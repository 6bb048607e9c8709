package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Backend and availability errors (retryable)
const (
	// ErrCodeTransientBackend indicates a segmentation, identification or
	// storage backend failed in a way that may succeed on retry.
	ErrCodeTransientBackend ErrorCode = "TRANSIENT_BACKEND"
	// ErrCodeServiceUnavailable indicates a backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates a backend call exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeDatabaseError indicates a storage error such as lock contention.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// Input errors (never retried)
const (
	// ErrCodePermanentInput indicates malformed audio or configuration.
	ErrCodePermanentInput ErrorCode = "PERMANENT_INPUT"
	// ErrCodeInvalidInput indicates a request parameter is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeConsentRequired indicates enrollment was attempted without consent.
	ErrCodeConsentRequired ErrorCode = "CONSENT_REQUIRED"
	// ErrCodeAlignment indicates transcript or segment timestamps violate
	// alignment preconditions.
	ErrCodeAlignment ErrorCode = "ALIGNMENT_ERROR"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeCanceled indicates the operation was canceled by the caller.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransientBackend:   true,
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
