package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

const registrationColumns = `id, student_id, course_id, status, reserve_position, created_at, updated_at`

var _ registration.Store = (*RegistrationRepository)(nil)

// RegistrationRepository persists course registrations and implements registration.Store on
// top of a transaction that holds the course row lock.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// WithinCourse locks the course row and runs fn in the same transaction.
func (r *RegistrationRepository) WithinCourse(ctx context.Context, courseID string, fn func(registration.CourseTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT c.id, c.semester_id, c.course_name, c.professor, c.schedule, c.max_capacity, c.reserve_limit, c.created_at, c.updated_at,
        s.registration_start, s.registration_end
        FROM courses c JOIN semesters s ON s.id = c.semester_id
        WHERE c.id = $1 FOR UPDATE OF c`
	var course models.CourseDetail
	if err = tx.GetContext(ctx, &course, lockQuery, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqInvalidText {
			return registration.ErrCourseNotFound
		}
		return fmt.Errorf("lock course: %w", err)
	}

	if err = fn(&courseTx{tx: tx, course: course}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit registration transaction: %w", err)
	}
	return nil
}

// ListByStudentAndSemester returns the student's registrations for courses of a semester.
func (r *RegistrationRepository) ListByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.StudentCourse, error) {
	const query = `SELECT r.id AS registration_id, c.id AS course_id, c.course_name, c.professor, c.schedule, r.status, r.reserve_position, r.created_at AS registered_at
        FROM course_registrations r JOIN courses c ON c.id = r.course_id
        WHERE r.student_id = $1 AND c.semester_id = $2
        ORDER BY c.course_name ASC`
	var courses []models.StudentCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID, semesterID); err != nil {
		return nil, fmt.Errorf("list student registrations: %w", err)
	}
	return courses, nil
}

// Roster lists ENROLLED students by registration time followed by the reserve queue in order.
func (r *RegistrationRepository) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT r.student_id, s.student_number, s.name, r.status, r.reserve_position, r.created_at AS registered_at
        FROM course_registrations r JOIN students s ON s.id = r.student_id
        WHERE r.course_id = $1
        ORDER BY CASE WHEN r.status = $2 THEN 0 ELSE 1 END, r.reserve_position ASC NULLS FIRST, r.created_at ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, courseID, models.RegistrationStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return entries, nil
}

// Availability returns the course bounds with current ENROLLED and RESERVED counts.
func (r *RegistrationRepository) Availability(ctx context.Context, courseID string) (*models.CourseAvailability, error) {
	const query = `SELECT c.id AS course_id, c.max_capacity, c.reserve_limit,
        COUNT(r.id) FILTER (WHERE r.status = $2) AS enrolled,
        COUNT(r.id) FILTER (WHERE r.status = $3) AS reserved
        FROM courses c LEFT JOIN course_registrations r ON r.course_id = c.id
        WHERE c.id = $1
        GROUP BY c.id`
	var availability models.CourseAvailability
	if err := r.db.GetContext(ctx, &availability, query, courseID, models.RegistrationStatusEnrolled, models.RegistrationStatusReserved); err != nil {
		return nil, err
	}
	availability.Fill()
	return &availability, nil
}

// courseTx is the registration.CourseTx bound to a locked course.
type courseTx struct {
	tx     *sqlx.Tx
	course models.CourseDetail
}

func (t *courseTx) Course() models.CourseDetail { return t.course }

func (t *courseTx) Lookup(ctx context.Context, studentID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM course_registrations WHERE course_id = $1 AND student_id = $2`
	var reg models.Registration
	if err := t.tx.GetContext(ctx, &reg, query, t.course.ID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if pqCode(err) == pqInvalidText {
			return nil, registration.ErrStudentNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (t *courseTx) StudentExists(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, studentID); err != nil {
		if pqCode(err) == pqInvalidText {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func (t *courseTx) Counts(ctx context.Context) (registration.Counts, error) {
	const query = `SELECT COUNT(*) FILTER (WHERE status = $2) AS enrolled, COUNT(*) FILTER (WHERE status = $3) AS reserved
        FROM course_registrations WHERE course_id = $1`
	var row struct {
		Enrolled int `db:"enrolled"`
		Reserved int `db:"reserved"`
	}
	if err := t.tx.GetContext(ctx, &row, query, t.course.ID, models.RegistrationStatusEnrolled, models.RegistrationStatusReserved); err != nil {
		return registration.Counts{}, err
	}
	return registration.Counts{Enrolled: row.Enrolled, Reserved: row.Reserved}, nil
}

func (t *courseTx) Insert(ctx context.Context, reg *models.Registration) error {
	const query = `INSERT INTO course_registrations (id, student_id, course_id, status, reserve_position, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :reserve_position, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, reg); err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return registration.ErrAlreadyRegistered
		case pqForeignKeyViolation, pqInvalidText:
			return registration.ErrStudentNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *courseTx) Remove(ctx context.Context, registrationID string) error {
	const query = `DELETE FROM course_registrations WHERE id = $1 AND course_id = $2`
	res, err := t.tx.ExecContext(ctx, query, registrationID, t.course.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, registration.ErrNotRegistered)
}

func (t *courseTx) Head(ctx context.Context) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM course_registrations
        WHERE course_id = $1 AND status = $2 ORDER BY reserve_position ASC LIMIT 1`
	var reg models.Registration
	if err := t.tx.GetContext(ctx, &reg, query, t.course.ID, models.RegistrationStatusReserved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (t *courseTx) Promote(ctx context.Context, registrationID string) error {
	const query = `UPDATE course_registrations SET status = $1, reserve_position = NULL, updated_at = $2
        WHERE id = $3 AND course_id = $4 AND status = $5`
	res, err := t.tx.ExecContext(ctx, query, models.RegistrationStatusEnrolled, time.Now().UTC(), registrationID, t.course.ID, models.RegistrationStatusReserved)
	if err != nil {
		return err
	}
	return requireAffected(res, registration.ErrNotRegistered)
}

func (t *courseTx) ShiftAfter(ctx context.Context, position int) error {
	const query = `UPDATE course_registrations SET reserve_position = reserve_position - 1, updated_at = $4
        WHERE course_id = $1 AND status = $2 AND reserve_position > $3`
	_, err := t.tx.ExecContext(ctx, query, t.course.ID, models.RegistrationStatusReserved, position, time.Now().UTC())
	return err
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
