package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/middleware"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, studentID, courseID string) (*models.RegisterResponse, error)
	Drop(ctx context.Context, studentID, courseID string) (*models.DropResponse, error)
	MyCourses(ctx context.Context, studentID, semesterID string) ([]models.StudentCourse, error)
	Availability(ctx context.Context, courseID string) (*models.CourseAvailability, bool, error)
}

// RegistrationHandler exposes course registration endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Register godoc
// @Summary Register for a course
// @Description Enrolls the student, or places them on the reserve queue when the course is full
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /courses/{id}/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Register(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, res)
}

// Drop godoc
// @Summary Drop a course
// @Description Removes the student's registration; a freed seat goes to the head of the reserve queue
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /courses/{id}/drop [post]
func (h *RegistrationHandler) Drop(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Drop(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// MyCourses godoc
// @Summary List my registrations
// @Description Lists the student's enrolled and reserved courses in a semester
// @Tags Registration
// @Produce json
// @Security BearerAuth
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id}/my-courses [get]
func (h *RegistrationHandler) MyCourses(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.service.MyCourses(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Availability godoc
// @Summary Course availability
// @Description Returns enrolled and reserved counts with free seats and free reserve slots
// @Tags Registration
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/availability [get]
func (h *RegistrationHandler) Availability(c *gin.Context) {
	availability, hit, err := h.service.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, availability, middleware.ResponseMeta(c))
}
