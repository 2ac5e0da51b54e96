package models

import "time"

// RegistrationStatus is the state of a student's seat in a course.
type RegistrationStatus string

// Registration statuses.
const (
	RegistrationStatusEnrolled RegistrationStatus = "ENROLLED"
	RegistrationStatusReserved RegistrationStatus = "RESERVED"
)

// Registration ties a student to a course. ReservePosition is set only while RESERVED.
type Registration struct {
	ID              string             `db:"id" json:"id"`
	StudentID       string             `db:"student_id" json:"student_id"`
	CourseID        string             `db:"course_id" json:"course_id"`
	Status          RegistrationStatus `db:"status" json:"status"`
	ReservePosition *int               `db:"reserve_position" json:"reserve_position"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// Position returns the reserve position or zero when enrolled.
func (r Registration) Position() int {
	if r.ReservePosition == nil {
		return 0
	}
	return *r.ReservePosition
}

// RegisterResponse is returned by the register endpoint.
type RegisterResponse struct {
	Status          RegistrationStatus `json:"status"`
	ReservePosition *int               `json:"reserve_position"`
}

// DropResponse is returned by the drop endpoint.
type DropResponse struct {
	DroppedStatus        RegistrationStatus `json:"dropped_status"`
	PromotedStudentID    *string            `json:"promoted_student_id,omitempty"`
	PromotedFromPosition *int               `json:"promoted_from_position,omitempty"`
}

// StudentCourse is a registration of the current student joined with course info.
type StudentCourse struct {
	RegistrationID  string             `db:"registration_id" json:"registration_id"`
	CourseID        string             `db:"course_id" json:"course_id"`
	CourseName      string             `db:"course_name" json:"course_name"`
	Professor       string             `db:"professor" json:"professor"`
	Schedule        string             `db:"schedule" json:"schedule"`
	Status          RegistrationStatus `db:"status" json:"status"`
	ReservePosition *int               `db:"reserve_position" json:"reserve_position"`
	RegisteredAt    time.Time          `db:"registered_at" json:"registered_at"`
}

// RosterEntry is one line of a course roster export.
type RosterEntry struct {
	StudentID       string             `db:"student_id" json:"student_id"`
	StudentNumber   string             `db:"student_number" json:"student_number"`
	Name            string             `db:"name" json:"name"`
	Status          RegistrationStatus `db:"status" json:"status"`
	ReservePosition *int               `db:"reserve_position" json:"reserve_position"`
	RegisteredAt    time.Time          `db:"registered_at" json:"registered_at"`
}
