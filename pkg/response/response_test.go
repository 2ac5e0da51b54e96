package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	c, w := testContext()
	JSON(c, http.StatusOK, map[string]int{"seats": 2}, map[string]interface{}{})

	assert.JSONEq(t, `{"data":{"seats":2}}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorRendersTypedError(t *testing.T) {
	c, w := testContext()
	Error(c, appErrors.ErrCourseFull)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":{"code":"COURSE_FULL","message":"course is full; reserve list is full","status":409}}`, w.Body.String())
	assert.Empty(t, c.Errors)
}

func TestErrorWrapsUnknownAsInternal(t *testing.T) {
	c, w := testContext()
	Error(c, errors.New("pq: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestFileSetsAttachment(t *testing.T) {
	c, w := testContext()
	File(c, "text/csv", "roster.csv", []byte("a,b\n"))

	assert.Equal(t, `attachment; filename="roster.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
