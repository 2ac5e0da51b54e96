package registration

import (
	"context"
	"fmt"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// reserveQueue keeps the RESERVED rows of a course ordered by position 1..n.
type reserveQueue struct{}

// Append places reg at the tail of a queue currently holding reserved rows.
func (reserveQueue) Append(ctx context.Context, tx CourseTx, reg *models.Registration, reserved int) (int, error) {
	position := reserved + 1
	reg.Status = models.RegistrationStatusReserved
	reg.ReservePosition = &position
	if err := tx.Insert(ctx, reg); err != nil {
		return 0, err
	}
	return position, nil
}

// Compact closes the gap left at removedPosition.
func (reserveQueue) Compact(ctx context.Context, tx CourseTx, removedPosition int) error {
	if err := tx.ShiftAfter(ctx, removedPosition); err != nil {
		return fmt.Errorf("compact reserve queue after %d: %w", removedPosition, err)
	}
	return nil
}

// PromoteHead returns the row at position 1 without changing it, or nil for an empty queue.
func (reserveQueue) PromoteHead(ctx context.Context, tx CourseTx) (*models.Registration, error) {
	head, err := tx.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reserve queue head: %w", err)
	}
	if head != nil && head.Position() != 1 {
		return nil, fmt.Errorf("reserve queue head of course %s at position %d", head.CourseID, head.Position())
	}
	return head, nil
}
