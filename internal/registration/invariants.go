package registration

import (
	"fmt"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// Verify checks a snapshot of one course's registrations against its capacity bounds, reserve
// position contiguity and per-student uniqueness. It returns the first violation found.
func Verify(course models.Course, rows []models.Registration) error {
	seen := make(map[string]struct{}, len(rows))
	positions := make(map[int]struct{})
	enrolled, reserved := 0, 0

	for _, row := range rows {
		if row.CourseID != course.ID {
			return fmt.Errorf("registration %s belongs to course %s, not %s", row.ID, row.CourseID, course.ID)
		}
		if _, dup := seen[row.StudentID]; dup {
			return fmt.Errorf("student %s registered twice", row.StudentID)
		}
		seen[row.StudentID] = struct{}{}

		switch row.Status {
		case models.RegistrationStatusEnrolled:
			if row.ReservePosition != nil {
				return fmt.Errorf("enrolled registration %s carries reserve position %d", row.ID, *row.ReservePosition)
			}
			enrolled++
		case models.RegistrationStatusReserved:
			if row.ReservePosition == nil || *row.ReservePosition < 1 {
				return fmt.Errorf("reserved registration %s has no valid position", row.ID)
			}
			if _, dup := positions[*row.ReservePosition]; dup {
				return fmt.Errorf("reserve position %d assigned twice", *row.ReservePosition)
			}
			positions[*row.ReservePosition] = struct{}{}
			reserved++
		default:
			return fmt.Errorf("registration %s has unknown status %q", row.ID, row.Status)
		}
	}

	if enrolled > course.MaxCapacity {
		return fmt.Errorf("%d enrolled exceeds capacity %d", enrolled, course.MaxCapacity)
	}
	if reserved > course.ReserveLimit {
		return fmt.Errorf("%d reserved exceeds reserve limit %d", reserved, course.ReserveLimit)
	}
	for p := 1; p <= reserved; p++ {
		if _, ok := positions[p]; !ok {
			return fmt.Errorf("reserve position %d missing among %d reserved", p, reserved)
		}
	}
	return nil
}
