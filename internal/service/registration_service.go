package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/cache"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/logger"
)

const availabilityTTL = 5 * time.Second

type registrationEngine interface {
	Register(ctx context.Context, studentID, courseID string) (registration.Outcome, error)
	Drop(ctx context.Context, studentID, courseID string) (registration.DropResult, error)
}

type registrationReader interface {
	ListByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.StudentCourse, error)
	Availability(ctx context.Context, courseID string) (*models.CourseAvailability, error)
}

type semesterFinder interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

// RegistrationService exposes the registration engine to the HTTP layer and keeps derived
// read models (availability cache, event log) in step with committed changes.
type RegistrationService struct {
	engine    registrationEngine
	reader    registrationReader
	semesters semesterFinder
	cache     *CacheService
	events    *EventService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(engine registrationEngine, reader registrationReader, semesters semesterFinder, cacheSvc *CacheService, events *EventService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		engine:    engine,
		reader:    reader,
		semesters: semesters,
		cache:     cacheSvc,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Register enrolls the student or places them on the reserve queue.
func (s *RegistrationService) Register(ctx context.Context, studentID, courseID string) (*models.RegisterResponse, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return nil, err
	}

	outcome, err := s.engine.Register(ctx, studentID, courseID)
	if err != nil {
		return nil, s.translate(ctx, err, "failed to register for course")
	}

	s.afterCommit(ctx, courseID)
	s.events.PublishRegistration(ctx, outcome)

	resp := &models.RegisterResponse{Status: outcome.Status}
	if outcome.Status == models.RegistrationStatusReserved {
		position := outcome.Position
		resp.ReservePosition = &position
	}
	return resp, nil
}

// Drop removes the student's registration, promoting the reserve queue head when a seat frees.
func (s *RegistrationService) Drop(ctx context.Context, studentID, courseID string) (*models.DropResponse, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return nil, err
	}

	result, err := s.engine.Drop(ctx, studentID, courseID)
	if err != nil {
		return nil, s.translate(ctx, err, "failed to drop course")
	}

	s.afterCommit(ctx, courseID)
	s.events.PublishDrop(ctx, result)

	resp := &models.DropResponse{DroppedStatus: result.Dropped.Status}
	if result.Promoted != nil {
		promotedID := result.Promoted.StudentID
		from := result.PromotedFrom
		resp.PromotedStudentID = &promotedID
		resp.PromotedFromPosition = &from
	}
	return resp, nil
}

// MyCourses lists the student's registrations within a semester.
func (s *RegistrationService) MyCourses(ctx context.Context, studentID, semesterID string) ([]models.StudentCourse, error) {
	if err := s.validator.Var(semesterID, "required,uuid"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester id")
	}
	if _, err := s.semesters.FindByID(ctx, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	start := time.Now()
	courses, err := s.reader.ListByStudentAndSemester(ctx, studentID, semesterID)
	s.metrics.ObserveDBQuery("my_courses", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	if courses == nil {
		courses = []models.StudentCourse{}
	}
	return courses, nil
}

// Availability returns the occupancy of a course. The boolean reports a cache hit.
func (s *RegistrationService) Availability(ctx context.Context, courseID string) (*models.CourseAvailability, bool, error) {
	if err := s.validator.Var(courseID, "required,uuid"); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course id")
	}

	key := cache.AvailabilityKey(courseID, s.cache.Version(ctx, cache.AvailabilityVersionKey(courseID)))
	availability, hit, err := Remember(ctx, s.cache, key, availabilityTTL, func(ctx context.Context) (*models.CourseAvailability, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveDBQuery("availability", time.Since(start)) }()
		return s.reader.Availability(ctx, courseID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return availability, hit, nil
}

func (s *RegistrationService) validateIDs(studentID, courseID string) error {
	if studentID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Var(courseID, "required,uuid"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course id")
	}
	return nil
}

// afterCommit moves availability reads to a fresh cache version, so a load that raced the commit
// cannot repopulate the key readers use.
func (s *RegistrationService) afterCommit(ctx context.Context, courseID string) {
	ctx = context.WithoutCancel(ctx)
	version, err := s.cache.Bump(ctx, cache.AvailabilityVersionKey(courseID))
	if err != nil || version == 0 {
		return
	}
	_ = s.cache.Invalidate(ctx, cache.AvailabilityKey(courseID, version-1))
}

// translate maps engine errors onto API errors.
func (s *RegistrationService) translate(ctx context.Context, err error, internalMessage string) error {
	switch {
	case errors.Is(err, registration.ErrCourseNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "course not found")
	case errors.Is(err, registration.ErrStudentNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "student not found")
	case errors.Is(err, registration.ErrAlreadyRegistered):
		return as(appErrors.ErrAlreadyRegistered, err)
	case errors.Is(err, registration.ErrCourseFull):
		return as(appErrors.ErrCourseFull, err)
	case errors.Is(err, registration.ErrNotRegistered):
		return as(appErrors.ErrNotRegistered, err)
	case errors.Is(err, registration.ErrWindowClosed):
		return as(appErrors.ErrWindowClosed, err)
	case errors.Is(err, registration.ErrBusy), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return as(appErrors.ErrCourseBusy, err)
	default:
		logger.WithContext(ctx, s.logger).Error(internalMessage, zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMessage)
	}
}

func as(template *appErrors.Error, err error) *appErrors.Error {
	return appErrors.Wrap(err, template.Code, template.Status, template.Message)
}
