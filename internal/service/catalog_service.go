package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/cache"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

type semesterRepository interface {
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type courseRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.Course, error)
	FindDetail(ctx context.Context, id string) (*models.CourseDetail, error)
}

// CatalogService serves the read-only semester and course catalog.
type CatalogService struct {
	semesters semesterRepository
	courses   courseRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(semesters semesterRepository, courses courseRepository, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		semesters: semesters,
		courses:   courses,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListSemesters returns all semesters, newest window first.
func (s *CatalogService) ListSemesters(ctx context.Context) ([]models.Semester, bool, error) {
	semesters, hit, err := Remember(ctx, s.cache, cache.SemesterListKey(), 0, func(ctx context.Context) ([]models.Semester, error) {
		defer s.observe("list_semesters", time.Now())
		return s.semesters.List(ctx)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	if semesters == nil {
		semesters = []models.Semester{}
	}
	return semesters, hit, nil
}

// GetSemester returns a single semester.
func (s *CatalogService) GetSemester(ctx context.Context, id string) (*models.Semester, bool, error) {
	if err := s.validateID(id, "invalid semester id"); err != nil {
		return nil, false, err
	}
	semester, hit, err := Remember(ctx, s.cache, cache.SemesterKey(id), 0, func(ctx context.Context) (*models.Semester, error) {
		defer s.observe("get_semester", time.Now())
		return s.semesters.FindByID(ctx, id)
	})
	if err != nil {
		return nil, false, notFoundOr(err, "semester not found", "failed to load semester")
	}
	return semester, hit, nil
}

// ListCourses returns the courses offered in a semester ordered by name.
func (s *CatalogService) ListCourses(ctx context.Context, semesterID string) ([]models.Course, bool, error) {
	if _, _, err := s.GetSemester(ctx, semesterID); err != nil {
		return nil, false, err
	}
	courses, hit, err := Remember(ctx, s.cache, cache.SemesterCoursesKey(semesterID), 0, func(ctx context.Context) ([]models.Course, error) {
		defer s.observe("list_courses", time.Now())
		return s.courses.ListBySemester(ctx, semesterID)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, hit, nil
}

// GetCourse returns a course together with its semester window.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.CourseDetail, bool, error) {
	if err := s.validateID(id, "invalid course id"); err != nil {
		return nil, false, err
	}
	course, hit, err := Remember(ctx, s.cache, cache.CourseKey(id), 0, func(ctx context.Context) (*models.CourseDetail, error) {
		defer s.observe("get_course", time.Now())
		return s.courses.FindDetail(ctx, id)
	})
	if err != nil {
		return nil, false, notFoundOr(err, "course not found", "failed to load course")
	}
	return course, hit, nil
}

func (s *CatalogService) validateID(id, message string) error {
	if err := s.validator.Var(id, "required,uuid"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

func (s *CatalogService) observe(operation string, start time.Time) {
	s.metrics.ObserveDBQuery(operation, time.Since(start))
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
