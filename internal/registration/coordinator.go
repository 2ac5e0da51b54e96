package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// DropResult describes a committed drop. Promoted is set when the freed seat went to the
// head of the reserve queue.
type DropResult struct {
	Dropped      models.Registration
	Promoted     *models.Registration
	PromotedFrom int
}

// dropCoordinator removes a registration and rebalances the reserve queue in the same unit of work.
type dropCoordinator struct {
	queue reserveQueue
}

func (d dropCoordinator) drop(ctx context.Context, tx CourseTx, studentID string, now time.Time) (DropResult, error) {
	reg, err := tx.Lookup(ctx, studentID)
	if err != nil {
		return DropResult{}, fmt.Errorf("lookup registration: %w", err)
	}
	if reg == nil {
		if err := requireStudent(ctx, tx, studentID); err != nil {
			return DropResult{}, err
		}
		return DropResult{}, ErrNotRegistered
	}

	if err := tx.Remove(ctx, reg.ID); err != nil {
		return DropResult{}, fmt.Errorf("remove registration: %w", err)
	}
	result := DropResult{Dropped: *reg}

	if reg.Status == models.RegistrationStatusReserved {
		return result, d.queue.Compact(ctx, tx, reg.Position())
	}

	head, err := d.queue.PromoteHead(ctx, tx)
	if err != nil || head == nil {
		return result, err
	}
	if err := tx.Promote(ctx, head.ID); err != nil {
		return DropResult{}, fmt.Errorf("promote registration: %w", err)
	}
	if err := d.queue.Compact(ctx, tx, head.Position()); err != nil {
		return DropResult{}, err
	}

	promoted := *head
	promoted.Status = models.RegistrationStatusEnrolled
	promoted.ReservePosition = nil
	promoted.UpdatedAt = now
	result.Promoted = &promoted
	result.PromotedFrom = head.Position()
	return result, nil
}
