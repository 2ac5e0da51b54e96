package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

const semesterColumns = `id, name, registration_start, registration_end, created_at, updated_at`

// SemesterRepository reads semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns all semesters, most recent registration window first.
func (r *SemesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	query := `SELECT ` + semesterColumns + ` FROM semesters ORDER BY registration_start DESC, name ASC`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindByID fetches a semester by ID.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := `SELECT ` + semesterColumns + ` FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}
