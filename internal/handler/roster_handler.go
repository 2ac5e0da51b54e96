package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/service"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/response"
)

type rosterService interface {
	Entries(ctx context.Context, courseID string) (*models.CourseDetail, []models.RosterEntry, error)
	Export(ctx context.Context, courseID string, format service.RosterFormat) (*service.RosterFile, error)
}

// RosterHandler serves course rosters as JSON or downloadable files.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs a RosterHandler.
func NewRosterHandler(svc rosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// Roster godoc
// @Summary Course roster
// @Description Enrolled students followed by the reserve queue in position order
// @Tags Registration
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	format, err := service.ParseRosterFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	courseID := c.Param("id")
	if format == service.RosterFormatJSON {
		course, entries, err := h.service.Entries(c.Request.Context(), courseID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"course": course, "entries": entries})
		return
	}

	file, err := h.service.Export(c.Request.Context(), courseID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Body)
}
