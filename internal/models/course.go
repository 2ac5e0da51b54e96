package models

import "time"

// DefaultReserveLimit is applied by the schema when a course omits reserve_limit.
const DefaultReserveLimit = 10

// Course is a capacity-limited offering inside a semester.
type Course struct {
	ID           string    `db:"id" json:"id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	CourseName   string    `db:"course_name" json:"course_name"`
	Professor    string    `db:"professor" json:"professor"`
	Schedule     string    `db:"schedule" json:"schedule"`
	MaxCapacity  int       `db:"max_capacity" json:"max_capacity"`
	ReserveLimit int       `db:"reserve_limit" json:"reserve_limit"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail couples a course with the registration window of its semester.
type CourseDetail struct {
	Course
	RegistrationStart time.Time `db:"registration_start" json:"registration_start"`
	RegistrationEnd   time.Time `db:"registration_end" json:"registration_end"`
}

// WindowOpen reports whether at falls inside the semester registration window.
func (c CourseDetail) WindowOpen(at time.Time) bool {
	return !at.Before(c.RegistrationStart) && at.Before(c.RegistrationEnd)
}

// CourseAvailability summarises occupancy of a course.
type CourseAvailability struct {
	CourseID          string `db:"course_id" json:"course_id"`
	MaxCapacity       int    `db:"max_capacity" json:"max_capacity"`
	ReserveLimit      int    `db:"reserve_limit" json:"reserve_limit"`
	Enrolled          int    `db:"enrolled" json:"enrolled"`
	Reserved          int    `db:"reserved" json:"reserved"`
	FreeSeats         int    `db:"-" json:"free_seats"`
	FreeReserveSlots  int    `db:"-" json:"free_reserve_slots"`
	AcceptingRequests bool   `db:"-" json:"accepting_requests"`
}

// Fill derives the free seat counters from the raw counts.
func (a *CourseAvailability) Fill() {
	a.FreeSeats = max(a.MaxCapacity-a.Enrolled, 0)
	a.FreeReserveSlots = max(a.ReserveLimit-a.Reserved, 0)
	a.AcceptingRequests = a.FreeSeats > 0 || a.FreeReserveSlots > 0
}
