package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/jobs"
)

const (
	eventJobType        = "registration_events"
	eventEnqueueTimeout = 100 * time.Millisecond
)

type registrationEventWriter interface {
	InsertBatch(ctx context.Context, events []models.RegistrationEvent) error
}

// EventConfig configures the asynchronous registration event log.
type EventConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
}

// EventService writes committed registration transitions to the audit log off the request path.
type EventService struct {
	repo    registrationEventWriter
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewEventService constructs the service and its worker queue. Call Start before publishing.
func NewEventService(repo registrationEventWriter, cfg EventConfig, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EventService{repo: repo, logger: logger, enabled: cfg.Enabled && repo != nil}
	svc.queue = jobs.NewQueue("registration-events", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the workers.
func (s *EventService) Start(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending events until ctx expires.
func (s *EventService) Stop(ctx context.Context) error {
	if s == nil || !s.enabled {
		return nil
	}
	return s.queue.Stop(ctx)
}

// Stats exposes queue counters.
func (s *EventService) Stats() jobs.Stats {
	if s == nil {
		return jobs.Stats{}
	}
	return s.queue.Stats()
}

// PublishRegistration records an ENROLLED or RESERVED transition.
func (s *EventService) PublishRegistration(ctx context.Context, outcome registration.Outcome) {
	reg := outcome.Registration
	eventType := models.RegistrationEventEnrolled
	if outcome.Status == models.RegistrationStatusReserved {
		eventType = models.RegistrationEventReserved
	}
	s.publish(ctx, []models.RegistrationEvent{newEvent(reg.CourseID, reg.StudentID, eventType, reg.ReservePosition)})
}

// PublishDrop records the drop and, when it happened, the promotion it caused.
func (s *EventService) PublishDrop(ctx context.Context, result registration.DropResult) {
	dropped := result.Dropped
	events := []models.RegistrationEvent{newEvent(dropped.CourseID, dropped.StudentID, models.RegistrationEventDropped, dropped.ReservePosition)}
	if p := result.Promoted; p != nil {
		from := result.PromotedFrom
		events = append(events, newEvent(p.CourseID, p.StudentID, models.RegistrationEventPromoted, &from))
	}
	s.publish(ctx, events)
}

func (s *EventService) publish(ctx context.Context, events []models.RegistrationEvent) {
	if s == nil || !s.enabled {
		return
	}
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventEnqueueTimeout)
	defer cancel()
	job := jobs.Job{ID: events[0].ID, Type: eventJobType, Payload: events}
	if err := s.queue.Enqueue(enqueueCtx, job); err != nil {
		s.logger.Warn("registration event dropped",
			zap.String("course_id", events[0].CourseID),
			zap.String("event_type", string(events[0].EventType)),
			zap.Error(err),
		)
	}
}

func (s *EventService) handle(ctx context.Context, job jobs.Job) error {
	events, ok := job.Payload.([]models.RegistrationEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	return s.repo.InsertBatch(ctx, events)
}

func newEvent(courseID, studentID string, eventType models.RegistrationEventType, position *int) models.RegistrationEvent {
	event := models.RegistrationEvent{
		ID:         uuid.NewString(),
		CourseID:   courseID,
		StudentID:  studentID,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
	}
	if position != nil {
		p := *position
		event.ReservePosition = &p
	}
	return event
}
