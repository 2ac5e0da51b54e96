package models

import "time"

// RegistrationEventType enumerates audited registration transitions.
type RegistrationEventType string

// Registration event types.
const (
	RegistrationEventEnrolled RegistrationEventType = "ENROLLED"
	RegistrationEventReserved RegistrationEventType = "RESERVED"
	RegistrationEventDropped  RegistrationEventType = "DROPPED"
	RegistrationEventPromoted RegistrationEventType = "PROMOTED"
)

// RegistrationEvent is an append-only audit record of a committed transition.
type RegistrationEvent struct {
	ID              string                `db:"id" json:"id"`
	CourseID        string                `db:"course_id" json:"course_id"`
	StudentID       string                `db:"student_id" json:"student_id"`
	EventType       RegistrationEventType `db:"event_type" json:"event_type"`
	ReservePosition *int                  `db:"reserve_position" json:"reserve_position,omitempty"`
	OccurredAt      time.Time             `db:"occurred_at" json:"occurred_at"`
}
