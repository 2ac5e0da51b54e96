package registration

import (
	"context"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// Counts holds the number of ENROLLED and RESERVED registrations of a course.
type Counts struct {
	Enrolled int
	Reserved int
}

// Store opens atomic units of work scoped to a single course.
//
// WithinCourse locks the course, calls fn and commits only when fn returns nil. Any error
// discards every write made through the CourseTx. Unknown courses yield ErrCourseNotFound.
type Store interface {
	WithinCourse(ctx context.Context, courseID string, fn func(CourseTx) error) error
}

// CourseTx is the view of one locked course handed to the engine.
type CourseTx interface {
	// Course returns the locked course with its semester window.
	Course() models.CourseDetail
	// Lookup returns the student's registration or nil when absent.
	Lookup(ctx context.Context, studentID string) (*models.Registration, error)
	// StudentExists reports whether studentID names a known student.
	StudentExists(ctx context.Context, studentID string) (bool, error)
	Counts(ctx context.Context) (Counts, error)
	// Insert adds a row. Duplicates yield ErrAlreadyRegistered and unknown students ErrStudentNotFound.
	Insert(ctx context.Context, reg *models.Registration) error
	Remove(ctx context.Context, registrationID string) error
	// Head returns the RESERVED row with the lowest position or nil when the queue is empty.
	Head(ctx context.Context) (*models.Registration, error)
	// Promote flips a RESERVED row to ENROLLED and clears its position.
	Promote(ctx context.Context, registrationID string) error
	// ShiftAfter decrements every RESERVED position greater than position.
	ShiftAfter(ctx context.Context, position int) error
}
