package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceObserver(t *testing.T) {
	metrics := NewMetricsService()

	metrics.ObserveRegistration("ok", "ENROLLED", 2*time.Millisecond)
	metrics.ObserveRegistration("course_full", "", time.Millisecond)
	metrics.ObserveDrop("ok", true, time.Millisecond)
	metrics.ObserveLockWait("ok", time.Millisecond)
	metrics.LockWaiters(1)
	metrics.LockWaiters(1)
	metrics.LockWaiters(-1)

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.Registrations)
	assert.EqualValues(t, 1, snapshot.Rejections)
	assert.EqualValues(t, 1, snapshot.Drops)
	assert.EqualValues(t, 1, snapshot.Promotions)
	assert.EqualValues(t, 1, snapshot.LockWaiters)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `course_registrations_total{outcome="course_full",status="none"} 1`))
	assert.True(t, strings.Contains(body, "course_promotions_total 1"))
	assert.True(t, strings.Contains(body, "course_lock_waiters 1"))
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.ObserveHTTPRequest(http.MethodGet, "/semesters", http.StatusOK, 4*time.Millisecond)
	metrics.ObserveDBQuery("availability", 2*time.Millisecond)

	snapshot := metrics.Snapshot()
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
	assert.EqualValues(t, 1, snapshot.RequestsTotal)
	assert.InDelta(t, 4, snapshot.AverageRequestDurationMs, 0.0001)
	assert.EqualValues(t, 1, snapshot.DBQueryCount)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveRegistration("ok", "ENROLLED", time.Millisecond)
	metrics.LockWaiters(1)
	assert.Zero(t, metrics.Snapshot().Registrations)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
