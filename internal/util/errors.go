package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrInvalidCategory   = errors.New("unknown analytics category")
	ErrCourseNotFound    = errors.New("course not found")
	ErrParcoursNotFound  = errors.New("parcours not found")
	ErrParcoursLocked    = errors.New("parcours requires a higher membership level")
	ErrParcoursCompleted = errors.New("parcours already completed")
	ErrInvalidWeek       = errors.New("week or month out of range")
	ErrUnknownEventType  = errors.New("unknown event type")
	ErrNoMembership      = errors.New("no active membership")

	// ErrSourceUnavailable 数据源不存在或不可用（区别于“没有数据”）
	ErrSourceUnavailable = errors.New("data source unavailable")
)

// ValidationError is a user-input failure surfaced to the caller as is.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError reports whether err carries a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
