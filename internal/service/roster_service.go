package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/export"
)

// RosterFormat selects the rendering of a roster export.
type RosterFormat string

const (
	RosterFormatJSON RosterFormat = "json"
	RosterFormatCSV  RosterFormat = "csv"
	RosterFormatPDF  RosterFormat = "pdf"
)

type rosterReader interface {
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type courseDetailFinder interface {
	FindDetail(ctx context.Context, id string) (*models.CourseDetail, error)
}

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// RosterFile is a rendered roster attachment.
type RosterFile struct {
	ContentType string
	Filename    string
	Body        []byte
}

// RosterService lists and exports the enrolled students and reserve queue of a course.
type RosterService struct {
	roster    rosterReader
	courses   courseDetailFinder
	renderers map[RosterFormat]datasetRenderer
	enabled   bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewRosterService constructs a RosterService. Disabled services reject every call.
func NewRosterService(roster rosterReader, courses courseDetailFinder, enabled bool, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		roster:  roster,
		courses: courses,
		renderers: map[RosterFormat]datasetRenderer{
			RosterFormatCSV: export.NewCSVExporter(),
			RosterFormatPDF: export.NewPDFExporter(),
		},
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// ParseRosterFormat normalises the format query value, defaulting to JSON.
func ParseRosterFormat(raw string) (RosterFormat, error) {
	switch format := RosterFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case "", RosterFormatJSON:
		return RosterFormatJSON, nil
	case RosterFormatCSV, RosterFormatPDF:
		return format, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be one of json, csv, pdf")
	}
}

// Entries returns enrolled students followed by the reserve queue in position order.
func (s *RosterService) Entries(ctx context.Context, courseID string) (*models.CourseDetail, []models.RosterEntry, error) {
	if !s.enabled {
		return nil, nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "roster export is disabled")
	}
	course, err := s.courses.FindDetail(ctx, courseID)
	if err != nil {
		return nil, nil, notFoundOr(err, "course not found", "failed to load course")
	}
	entries, err := s.roster.Roster(ctx, courseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if entries == nil {
		entries = []models.RosterEntry{}
	}
	return course, entries, nil
}

// Export renders the roster as a CSV or PDF attachment.
func (s *RosterService) Export(ctx context.Context, courseID string, format RosterFormat) (*RosterFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported roster format")
	}
	course, entries, err := s.Entries(ctx, courseID)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(s.dataset(course, entries))
	if err != nil {
		s.logger.Error("render roster", zap.String("course_id", courseID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &RosterFile{
		ContentType: renderer.ContentType(),
		Filename:    fmt.Sprintf("roster-%s.%s", course.ID, renderer.Extension()),
		Body:        body,
	}, nil
}

func (s *RosterService) dataset(course *models.CourseDetail, entries []models.RosterEntry) export.Dataset {
	enrolled, reserved := 0, 0
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		position := ""
		if entry.ReservePosition != nil {
			position = strconv.Itoa(*entry.ReservePosition)
		}
		if entry.Status == models.RegistrationStatusEnrolled {
			enrolled++
		} else {
			reserved++
		}
		rows = append(rows, []string{
			entry.StudentNumber,
			entry.Name,
			string(entry.Status),
			position,
			entry.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title: course.CourseName,
		Subtitle: []string{
			fmt.Sprintf("Professor: %s", course.Professor),
			fmt.Sprintf("Enrolled %d/%d, reserved %d/%d", enrolled, course.MaxCapacity, reserved, course.ReserveLimit),
			fmt.Sprintf("Generated %s", s.now().UTC().Format(time.RFC3339)),
		},
		Headers: []string{"Student Number", "Name", "Status", "Reserve Position", "Registered At"},
		Rows:    rows,
	}
}
