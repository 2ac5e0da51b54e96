package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/middleware"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/response"
)

type catalogService interface {
	ListSemesters(ctx context.Context) ([]models.Semester, bool, error)
	GetSemester(ctx context.Context, id string) (*models.Semester, bool, error)
	ListCourses(ctx context.Context, semesterID string) ([]models.Course, bool, error)
	GetCourse(ctx context.Context, id string) (*models.CourseDetail, bool, error)
}

// CatalogHandler serves the read-only semester and course catalog.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListSemesters godoc
// @Summary List semesters
// @Description Lists semesters with the newest registration window first
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *CatalogHandler) ListSemesters(c *gin.Context) {
	semesters, hit, err := h.service.ListSemesters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, semesters, middleware.ResponseMeta(c))
}

// GetSemester godoc
// @Summary Get semester
// @Tags Catalog
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id} [get]
func (h *CatalogHandler) GetSemester(c *gin.Context) {
	semester, hit, err := h.service.GetSemester(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, semester, middleware.ResponseMeta(c))
}

// ListCourses godoc
// @Summary List courses of a semester
// @Description Lists the courses offered in a semester ordered by name
// @Tags Catalog
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id}/courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, hit, err := h.service.ListCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, middleware.ResponseMeta(c))
}

// GetCourse godoc
// @Summary Get course
// @Description Returns a course with its semester registration window
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	course, hit, err := h.service.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, course, middleware.ResponseMeta(c))
}
