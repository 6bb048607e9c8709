package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/ocobra/meeting-minutes-sub000/errors"
)

// IsRetryableError reports whether a database error may succeed on retry.
// SQLite reports writer contention as "database is locked" or "busy".
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"busy",
		"driver: bad connection",
		"i/o timeout",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a database error to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, "")
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(fmt.Sprintf("A %s with these details already exists.", resource)).WithCause(err)
	}

	appErr := apperrors.DatabaseError(err)
	appErr.Retryable = IsRetryableError(err)
	return appErr
}
