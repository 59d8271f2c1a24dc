package platform

import (
	"errors"
	"fmt"
)

// AuthError indicates an invalid or expired credential. It is
// user-actionable; the scheduler skips the user and retries next tick.
type AuthError struct {
	UserID string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for user %s: %v", e.UserID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QuotaExceededError indicates a platform-side rate limit. All further
// platform calls for the user are skipped for the rest of the tick.
type QuotaExceededError struct {
	Err error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("platform quota exceeded: %v", e.Err)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// NotFoundError indicates a missing video.
type NotFoundError struct {
	VideoID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("video %s not found", e.VideoID)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsQuotaExceeded reports whether err is a quota limit.
func IsQuotaExceeded(err error) bool {
	var quotaErr *QuotaExceededError
	return errors.As(err, &quotaErr)
}

// IsNotFound reports whether err is a missing-video failure.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}
