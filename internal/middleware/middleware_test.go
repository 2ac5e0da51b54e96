package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/service"
	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.got = token
	return s.claims, s.err
}

func jwtRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWT(v), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.StudentID+"|"+c.GetString(logger.StudentKey))
	})
	return r
}

func TestJWTAcceptsBearerToken(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{StudentID: "stu-1"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")

	jwtRouter(v).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1|stu-1", w.Body.String())
	assert.Equal(t, "abc.def.ghi", v.got)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{StudentID: "stu-1"}}
	for _, header := range []string{"", "Token abc", "Bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		jwtRouter(v).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
	assert.Empty(t, v.got)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	v := &stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")

	jwtRouter(v).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "token expired"))
}

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/courses/a", "/courses/b", "/nope/1", "/nope/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	routes := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					routes[label.GetValue()] = true
				}
			}
		}
	}
	assert.Equal(t, map[string]bool{"/courses/:id": true, unmatchedRoute: true}, routes)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
}
