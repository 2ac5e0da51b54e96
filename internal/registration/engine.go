package registration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

var tracer = otel.Tracer("course-registration/registration")

// Options tunes an Engine. The zero value waits for course locks without a timeout and
// leaves window checks to the caller.
type Options struct {
	// LockTimeout bounds the wait for a course lock; exceeding it fails with ErrBusy.
	LockTimeout time.Duration
	// EnforceWindow rejects operations outside the semester registration window.
	EnforceWindow bool
	Clock         func() time.Time
	Observer      Observer
	Logger        *zap.Logger
}

// Outcome is the result of a successful registration.
type Outcome struct {
	Status       models.RegistrationStatus
	Position     int
	Registration models.Registration
}

// Engine serialises registrations and drops per course on top of a Store.
type Engine struct {
	store         Store
	locks         *courseLocks
	gate          capacityGate
	coordinator   dropCoordinator
	enforceWindow bool
	now           func() time.Time
	observer      Observer
	logger        *zap.Logger
}

// NewEngine builds an Engine over store.
func NewEngine(store Store, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		store:         store,
		locks:         newCourseLocks(opts.LockTimeout),
		enforceWindow: opts.EnforceWindow,
		now:           opts.Clock,
		observer:      opts.Observer,
		logger:        opts.Logger,
	}
}

// Register admits studentID into courseID as ENROLLED when a seat is free, otherwise as RESERVED
// at the tail of the reserve queue, otherwise fails with ErrCourseFull.
func (e *Engine) Register(ctx context.Context, studentID, courseID string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "registration.register", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.String("student.id", studentID),
	))
	defer span.End()

	start := time.Now()
	var outcome Outcome
	err := e.withCourse(ctx, courseID, studentID, func(ctx context.Context, tx CourseTx) error {
		reg, err := e.gate.admit(ctx, tx, studentID, e.now())
		if err != nil {
			return err
		}
		outcome = Outcome{Status: reg.Status, Position: reg.Position(), Registration: *reg}
		return nil
	})
	e.observer.ObserveRegistration(outcomeLabel(err), string(outcome.Status), time.Since(start))
	if err != nil {
		e.fail(span, "register", courseID, studentID, err)
		return Outcome{}, err
	}

	span.SetAttributes(
		attribute.String("registration.status", string(outcome.Status)),
		attribute.Int("registration.reserve_position", outcome.Position),
	)
	e.logger.Debug("registration committed",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.String("status", string(outcome.Status)),
		zap.Int("reserve_position", outcome.Position),
	)
	return outcome, nil
}

// Drop removes the student's registration. Dropping an ENROLLED row promotes the reserve queue
// head; dropping a RESERVED row only compacts the positions behind it.
func (e *Engine) Drop(ctx context.Context, studentID, courseID string) (DropResult, error) {
	ctx, span := tracer.Start(ctx, "registration.drop", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.String("student.id", studentID),
	))
	defer span.End()

	start := time.Now()
	var result DropResult
	err := e.withCourse(ctx, courseID, studentID, func(ctx context.Context, tx CourseTx) error {
		var err error
		result, err = e.coordinator.drop(ctx, tx, studentID, e.now())
		return err
	})
	e.observer.ObserveDrop(outcomeLabel(err), err == nil && result.Promoted != nil, time.Since(start))
	if err != nil {
		e.fail(span, "drop", courseID, studentID, err)
		return DropResult{}, err
	}

	fields := []zap.Field{
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.String("dropped_status", string(result.Dropped.Status)),
	}
	span.SetAttributes(attribute.String("registration.dropped_status", string(result.Dropped.Status)))
	if result.Promoted != nil {
		span.SetAttributes(attribute.String("registration.promoted_student_id", result.Promoted.StudentID))
		fields = append(fields, zap.String("promoted_student_id", result.Promoted.StudentID))
	}
	e.logger.Debug("drop committed", fields...)
	return result, nil
}

// withCourse runs fn inside the course serialization boundary. Once the lock is held the
// work is detached from caller cancellation so it always commits or rolls back as a whole.
func (e *Engine) withCourse(ctx context.Context, courseID, studentID string, fn func(context.Context, CourseTx) error) error {
	if courseID == "" {
		return ErrCourseNotFound
	}
	if studentID == "" {
		return ErrStudentNotFound
	}

	waitStart := time.Now()
	e.observer.LockWaiters(1)
	release, err := e.locks.acquire(ctx, courseID)
	e.observer.LockWaiters(-1)
	e.observer.ObserveLockWait(outcomeLabel(err), time.Since(waitStart))
	if err != nil {
		return err
	}
	defer release()

	runCtx := context.WithoutCancel(ctx)
	return e.store.WithinCourse(runCtx, courseID, func(tx CourseTx) error {
		if e.enforceWindow && !tx.Course().WindowOpen(e.now()) {
			return ErrWindowClosed
		}
		return fn(runCtx, tx)
	})
}

func (e *Engine) fail(span trace.Span, op, courseID, studentID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if IsDomainError(err) {
		e.logger.Debug(op+" rejected",
			zap.String("course_id", courseID),
			zap.String("student_id", studentID),
			zap.String("reason", outcomeLabel(err)),
		)
		return
	}
	e.logger.Error(op+" failed",
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.Error(err),
	)
}

// ActiveLocks reports how many courses are currently held or awaited.
func (e *Engine) ActiveLocks() int {
	return e.locks.size()
}
