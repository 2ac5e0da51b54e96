package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

type stubCourseRepo struct {
	bySemester map[string][]models.Course
	details    map[string]models.CourseDetail
	err        error
	listCalls  int
}

func (s *stubCourseRepo) ListBySemester(ctx context.Context, semesterID string) ([]models.Course, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bySemester[semesterID], nil
}

func (s *stubCourseRepo) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	detail, ok := s.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

func newCatalogFixture() (*CatalogService, *stubSemesterRepo, *stubCourseRepo, string) {
	semesterID := uuid.NewString()
	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	semesters := &stubSemesterRepo{semesters: map[string]models.Semester{
		semesterID: {ID: semesterID, Name: "Fall 2025", RegistrationStart: start, RegistrationEnd: start.Add(72 * time.Hour)},
	}}
	courses := &stubCourseRepo{bySemester: map[string][]models.Course{}, details: map[string]models.CourseDetail{}}
	cacheSvc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	return NewCatalogService(semesters, courses, cacheSvc, nil, nil, nil), semesters, courses, semesterID
}

func TestCatalogServiceListCoursesCaches(t *testing.T) {
	svc, _, courses, semesterID := newCatalogFixture()
	courses.bySemester[semesterID] = []models.Course{
		{ID: uuid.NewString(), SemesterID: semesterID, CourseName: "Algorithms", MaxCapacity: 30, ReserveLimit: 10},
		{ID: uuid.NewString(), SemesterID: semesterID, CourseName: "Databases", MaxCapacity: 40, ReserveLimit: 5},
	}

	first, hit, err := svc.ListCourses(context.Background(), semesterID)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 2)

	second, hit, err := svc.ListCourses(context.Background(), semesterID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, courses.listCalls)
}

func TestCatalogServiceListCoursesUnknownSemester(t *testing.T) {
	svc, _, courses, _ := newCatalogFixture()

	_, _, err := svc.ListCourses(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Zero(t, courses.listCalls)

	_, _, err = svc.ListCourses(context.Background(), "fall-2025")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCatalogServiceEmptyListsAreNotNil(t *testing.T) {
	svc, semesters, _, semesterID := newCatalogFixture()

	courses, _, err := svc.ListCourses(context.Background(), semesterID)
	require.NoError(t, err)
	assert.NotNil(t, courses)

	delete(semesters.semesters, semesterID)
	list, _, err := svc.ListSemesters(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCatalogServiceGetCourse(t *testing.T) {
	svc, _, courses, semesterID := newCatalogFixture()
	courseID := uuid.NewString()
	courses.details[courseID] = models.CourseDetail{
		Course: models.Course{ID: courseID, SemesterID: semesterID, CourseName: "Compilers", MaxCapacity: 2, ReserveLimit: 1},
	}

	detail, hit, err := svc.GetCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Compilers", detail.CourseName)

	_, _, err = svc.GetCourse(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCatalogServiceRepositoryFailure(t *testing.T) {
	svc, semesters, _, _ := newCatalogFixture()
	semesters.err = errors.New("connection reset")

	_, _, err := svc.ListSemesters(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 500, appErrors.FromError(err).Status)
}
