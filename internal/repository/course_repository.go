package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

// CourseRepository reads course offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListBySemester returns the courses of a semester ordered by name.
func (r *CourseRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.Course, error) {
	const query = `SELECT id, semester_id, course_name, professor, schedule, max_capacity, reserve_limit, created_at, updated_at
        FROM courses WHERE semester_id = $1 ORDER BY course_name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, semesterID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindDetail fetches a course with its semester registration window.
func (r *CourseRepository) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.semester_id, c.course_name, c.professor, c.schedule, c.max_capacity, c.reserve_limit, c.created_at, c.updated_at,
        s.registration_start, s.registration_end
        FROM courses c JOIN semesters s ON s.id = c.semester_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}
