package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("insufficient permissions")

	ErrCourseNotFound = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrThreadNotFound = errors.New("thread not found")
	ErrReplyNotFound  = errors.New("reply not found")
	ErrUserNotFound   = errors.New("user not found")

	ErrSlugTaken = errors.New("course slug already in use")
)

var errValidation = errors.New("service: validation error")

type validationError struct {
	message string
}

func (e *validationError) Error() string {
	return e.message
}

func (e *validationError) Unwrap() error {
	return errValidation
}

func newValidationError(format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &validationError{message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

// IsNotFound reports whether err names a missing resource.
func IsNotFound(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrLessonNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrThreadNotFound),
		errors.Is(err, ErrReplyNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// notFound translates gorm.ErrRecordNotFound into the given sentinel and
// leaves other errors untouched.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqlState interface{ SQLState() string }
	if errors.As(err, &sqlState) {
		return sqlState.SQLState() == "23505"
	}

	return false
}
