package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// StudentRepository reads student accounts.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByStudentNumber fetches a student with the password hash for authentication.
func (r *StudentRepository) FindByStudentNumber(ctx context.Context, studentNumber string) (*models.Student, error) {
	const query = `SELECT id, student_number, password_hash, name, created_at, updated_at FROM students WHERE student_number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, student_number, password_hash, name, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}
