package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// RegistrationEventRepository appends to the registration audit log.
type RegistrationEventRepository struct {
	db *sqlx.DB
}

// NewRegistrationEventRepository constructs a RegistrationEventRepository.
func NewRegistrationEventRepository(db *sqlx.DB) *RegistrationEventRepository {
	return &RegistrationEventRepository{db: db}
}

// InsertBatch writes events in a single transaction.
func (r *RegistrationEventRepository) InsertBatch(ctx context.Context, events []models.RegistrationEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO registration_events (id, course_id, student_id, event_type, reserve_position, occurred_at)
        VALUES (:id, :course_id, :student_id, :event_type, :reserve_position, :occurred_at)`
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		if _, err = tx.NamedExecContext(ctx, query, events[i]); err != nil {
			return fmt.Errorf("insert registration event: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit event transaction: %w", err)
	}
	return nil
}
