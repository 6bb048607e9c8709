package errors

import (
	"context"
	stderrors "errors"
	"net"
)

// Kind is the recovery class of an error.
type Kind int

const (
	// KindPermanent errors surface immediately and are never retried.
	KindPermanent Kind = iota
	// KindTransient errors are retried with backoff.
	KindTransient
	// KindConsent errors report missing enrollment consent.
	KindConsent
	// KindAlignment errors abort the pipeline for one meeting.
	KindAlignment
	// KindCanceled errors report caller cancellation.
	KindCanceled
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConsent:
		return "consent"
	case KindAlignment:
		return "alignment"
	case KindCanceled:
		return "canceled"
	default:
		return "permanent"
	}
}

// Classify maps err onto the recovery taxonomy. Unknown errors are
// permanent; deadline and network errors are transient.
func Classify(err error) Kind {
	if err == nil {
		return KindPermanent
	}
	if stderrors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if appErr, ok := AsAppError(err); ok {
		switch appErr.Code {
		case ErrCodeConsentRequired:
			return KindConsent
		case ErrCodeAlignment:
			return KindAlignment
		case ErrCodeCanceled:
			return KindCanceled
		}
		if appErr.Retryable {
			return KindTransient
		}
		return KindPermanent
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return KindTransient
	}
	return KindPermanent
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// IsNotFound reports whether err is a NOT_FOUND AppError.
func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeNotFound
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
