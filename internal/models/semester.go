package models

import "time"

// Semester groups courses under a single registration window.
type Semester struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	RegistrationStart time.Time `db:"registration_start" json:"registration_start"`
	RegistrationEnd   time.Time `db:"registration_end" json:"registration_end"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// WindowOpen reports whether at falls inside [RegistrationStart, RegistrationEnd).
func (s Semester) WindowOpen(at time.Time) bool {
	return !at.Before(s.RegistrationStart) && at.Before(s.RegistrationEnd)
}
