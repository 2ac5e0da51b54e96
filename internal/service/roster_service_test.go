package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

type stubRosterReader struct {
	entries []models.RosterEntry
	err     error
}

func (s stubRosterReader) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	return s.entries, s.err
}

type stubCourseFinder struct {
	detail *models.CourseDetail
}

func (s stubCourseFinder) FindDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	if s.detail == nil || s.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func rosterFixture(enabled bool) *RosterService {
	registered := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	position := 1
	reader := stubRosterReader{entries: []models.RosterEntry{
		{StudentID: "s-1", StudentNumber: "400100", Name: "Ava", Status: models.RegistrationStatusEnrolled, RegisteredAt: registered},
		{StudentID: "s-2", StudentNumber: "400101", Name: "Ben", Status: models.RegistrationStatusReserved, ReservePosition: &position, RegisteredAt: registered.Add(time.Minute)},
	}}
	finder := stubCourseFinder{detail: &models.CourseDetail{Course: models.Course{ID: "c-1", CourseName: "Operating Systems", Professor: "Dr. Rahimi", MaxCapacity: 1, ReserveLimit: 3}}}
	svc := NewRosterService(reader, finder, enabled, nil)
	svc.now = func() time.Time { return registered }
	return svc
}

func TestParseRosterFormat(t *testing.T) {
	format, err := ParseRosterFormat("")
	require.NoError(t, err)
	assert.Equal(t, RosterFormatJSON, format)

	format, err = ParseRosterFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, RosterFormatCSV, format)

	_, err = ParseRosterFormat("xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRosterServiceExportCSV(t *testing.T) {
	svc := rosterFixture(true)

	file, err := svc.Export(context.Background(), "c-1", RosterFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "roster-c-1.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student Number,Name,Status,Reserve Position,Registered At", lines[0])
	assert.Equal(t, "400100,Ava,ENROLLED,,2025-09-01T09:00:00Z", lines[1])
	assert.Equal(t, "400101,Ben,RESERVED,1,2025-09-01T09:01:00Z", lines[2])
}

func TestRosterServiceExportPDF(t *testing.T) {
	svc := rosterFixture(true)

	file, err := svc.Export(context.Background(), "c-1", RosterFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF-"))
}

func TestRosterServiceDisabledAndMissing(t *testing.T) {
	_, err := rosterFixture(false).Export(context.Background(), "c-1", RosterFormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrFeatureDisabled)

	_, _, err = rosterFixture(true).Entries(context.Background(), "c-404")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = rosterFixture(true).Export(context.Background(), "c-1", RosterFormatJSON)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
