package registration

import (
	"context"
	"errors"
)

// Domain errors returned by Engine. A failed operation never leaves partial state behind.
var (
	ErrCourseNotFound    = errors.New("course not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrAlreadyRegistered = errors.New("student already registered for course")
	ErrCourseFull        = errors.New("course and reserve list are full")
	ErrNotRegistered     = errors.New("student not registered for course")
	ErrWindowClosed      = errors.New("registration window is closed")
	ErrBusy              = errors.New("course busy: lock wait timed out")
)

// outcomeLabel maps an operation result onto a low-cardinality metric label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrCourseFull):
		return "course_full"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrStudentNotFound):
		return "not_found"
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// IsDomainError reports whether err is an expected, caller-visible condition.
func IsDomainError(err error) bool {
	switch outcomeLabel(err) {
	case "ok", "error":
		return false
	default:
		return true
	}
}
