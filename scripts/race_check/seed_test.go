package main

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSeedMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func upsertRows(id string, inserted bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "inserted"}).AddRow(id, inserted)
}

func TestSeedUpsertsStudentsSemestersAndCourses(t *testing.T) {
	db, mock := newSeedMock(t)
	start := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_number) DO UPDATE")).
		WithArgs("STU10000", sqlmock.AnyArg(), "Test Student STU10000").
		WillReturnRows(upsertRows("stu-1", true))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_number) DO UPDATE")).
		WithArgs("STU10001", sqlmock.AnyArg(), "Test Student STU10001").
		WillReturnRows(upsertRows("stu-2", false))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE")).
		WithArgs(loadSemesterName, start, end).
		WillReturnRows(upsertRows("sem-1", true))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (semester_id, course_name) DO UPDATE")).
		WithArgs("sem-1", loadCourseName, "Load Harness", "Mon/Wed 08:00-09:30", 3, 2).
		WillReturnRows(upsertRows("course-1", false))
	mock.ExpectCommit()

	opts := seedOptions{
		students:  2,
		password:  "test123",
		hashCost:  bcrypt.MinCost,
		semesters: []seedSemester{{name: loadSemesterName, start: start, end: end}},
		courses: []seedCourse{{
			semester: loadSemesterName, name: loadCourseName, professor: "Load Harness",
			schedule: "Mon/Wed 08:00-09:30", capacity: 3, reserve: 2,
		}},
	}
	report, err := seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1, report.StudentsCreated)
	assert.Equal(t, 1, report.StudentsUpdated)
	assert.Equal(t, 1, report.SemestersCreated)
	assert.Equal(t, 1, report.CoursesUpdated)
	assert.Equal(t, "course-1", report.CourseIDs[courseKey(loadSemesterName, loadCourseName)])

	out := &bytes.Buffer{}
	printSeedReport(out, opts, report)
	assert.Contains(t, out.String(), "STU10000..STU10001")
	assert.Contains(t, out.String(), "--semester sem-1 --course course-1")
}

func TestSeedStoresVerifiablePasswordHash(t *testing.T) {
	db, mock := newSeedMock(t)

	var hash string
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("STU10000", hashCapture{dest: &hash}, "Test Student STU10000").
		WillReturnRows(upsertRows("stu-1", true))
	mock.ExpectCommit()

	_, err := seed(context.Background(), db, seedOptions{students: 1, password: "test123", hashCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("test123")))
}

func TestSeedRollsBackOnFailure(t *testing.T) {
	t.Run("unknown semester", func(t *testing.T) {
		db, mock := newSeedMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := seed(context.Background(), db, seedOptions{
			password: "test123",
			hashCost: bcrypt.MinCost,
			courses:  []seedCourse{{semester: "Fall 2030", name: "Compilers", capacity: 10}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Fall 2030")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newSeedMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students")).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := seed(context.Background(), db, seedOptions{students: 1, password: "test123", hashCost: bcrypt.MinCost})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STU10000")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSeedValidatesOptions(t *testing.T) {
	db, _ := newSeedMock(t)

	_, err := seed(context.Background(), db, seedOptions{students: maxSeedStudents + 1, password: "test123"})
	assert.Error(t, err)

	_, err = seed(context.Background(), db, seedOptions{students: 1})
	assert.Error(t, err)
}

func TestCatalogCoursesReferenceCatalogSemesters(t *testing.T) {
	names := make(map[string]bool, len(catalogSemesters))
	for _, sem := range catalogSemesters {
		assert.True(t, sem.start.Before(sem.end), sem.name)
		names[sem.name] = true
	}
	for _, course := range catalogCourses {
		assert.True(t, names[course.semester], course.name)
		assert.Positive(t, course.capacity, course.name)
	}
	assert.Equal(t, []string{"STU10000", "STU10001"}, defaultStudents(2))
}

// hashCapture matches any string argument and keeps it.
type hashCapture struct {
	dest *string
}

func (h hashCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*h.dest = s
	}
	return ok
}
