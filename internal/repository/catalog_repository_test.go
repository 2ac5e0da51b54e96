package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

func TestSemesterRepositoryList(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewSemesterRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM semesters ORDER BY registration_start DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "registration_start", "registration_end", "created_at", "updated_at"}).
			AddRow("sem-2", "Spring 2026", now, now.Add(time.Hour), now, now).
			AddRow("sem-1", "Fall 2025", now.Add(-time.Hour), now, now, now))

	semesters, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, semesters, 2)
	assert.Equal(t, "Spring 2026", semesters[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM semesters WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindDetail(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewCourseRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c JOIN semesters s ON s.id = c.semester_id")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows(courseColumns).
			AddRow("course-1", "sem-1", "Databases", "Dr. Codd", "Mon 10:00", 30, 10, now, now, now, now.Add(time.Hour)))

	detail, err := repo.FindDetail(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 30, detail.MaxCapacity)
	assert.True(t, detail.WindowOpen(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByStudentNumber(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewStudentRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE student_number = $1")).
		WithArgs("S001").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_number", "password_hash", "name", "created_at", "updated_at"}).
			AddRow("stu-1", "S001", "hash", "Ada", now, now))

	student, err := repo.FindByStudentNumber(context.Background(), "S001")
	require.NoError(t, err)
	assert.Equal(t, "hash", student.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationEventRepositoryInsertBatch(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewRegistrationEventRepository(db)
	position := 2

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_events")).
		WithArgs(sqlmock.AnyArg(), "course-1", "stu-1", models.RegistrationEventEnrolled, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_events")).
		WithArgs(sqlmock.AnyArg(), "course-1", "stu-2", models.RegistrationEventReserved, position, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	events := []models.RegistrationEvent{
		{CourseID: "course-1", StudentID: "stu-1", EventType: models.RegistrationEventEnrolled, OccurredAt: time.Now()},
		{CourseID: "course-1", StudentID: "stu-2", EventType: models.RegistrationEventReserved, ReservePosition: &position, OccurredAt: time.Now()},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), events))
	assert.NotEmpty(t, events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationEventRepositoryInsertBatchRollsBack(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewRegistrationEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_events")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.InsertBatch(context.Background(), []models.RegistrationEvent{{CourseID: "c", StudentID: "s", EventType: models.RegistrationEventDropped}})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
