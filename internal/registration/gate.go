package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// capacityGate turns a registration request into an ENROLLED row, a RESERVED row or a rejection.
type capacityGate struct {
	queue reserveQueue
}

func (g capacityGate) admit(ctx context.Context, tx CourseTx, studentID string, now time.Time) (*models.Registration, error) {
	existing, err := tx.Lookup(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("lookup registration: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	counts, err := tx.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	course := tx.Course()
	reg := &models.Registration{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CourseID:  course.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case counts.Enrolled < course.MaxCapacity:
		reg.Status = models.RegistrationStatusEnrolled
		if err := tx.Insert(ctx, reg); err != nil {
			return nil, err
		}
	case counts.Reserved < course.ReserveLimit:
		if _, err := g.queue.Append(ctx, tx, reg, counts.Reserved); err != nil {
			return nil, err
		}
	default:
		if err := requireStudent(ctx, tx, studentID); err != nil {
			return nil, err
		}
		return nil, ErrCourseFull
	}
	return reg, nil
}

// requireStudent resolves a rejection for an unknown student to ErrStudentNotFound. Successful
// paths rely on Insert for the same check.
func requireStudent(ctx context.Context, tx CourseTx, studentID string) error {
	ok, err := tx.StudentExists(ctx, studentID)
	if err != nil {
		return fmt.Errorf("lookup student: %w", err)
	}
	if !ok {
		return ErrStudentNotFound
	}
	return nil
}
