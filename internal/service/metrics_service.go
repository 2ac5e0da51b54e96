package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
)

var _ registration.Observer = (*MetricsService)(nil)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
// It also receives engine measurements as a registration.Observer.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec

	registrationTotal    *prometheus.CounterVec
	registrationDuration *prometheus.HistogramVec
	dropTotal            *prometheus.CounterVec
	promotionTotal       prometheus.Counter
	lockWait             *prometheus.HistogramVec
	lockWaiters          prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	registrationCount    uint64
	rejectionCount       uint64
	dropCount            uint64
	promotionCount       uint64
	waiterCount          int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	registrationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_registrations_total",
		Help: "Registration attempts by outcome and resulting status",
	}, []string{"outcome", "status"})

	registrationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "course_registration_duration_seconds",
		Help:    "End-to-end engine latency including lock wait",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	dropTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_drops_total",
		Help: "Drop attempts by outcome",
	}, []string{"outcome"})

	promotionTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "course_promotions_total",
		Help: "Reserve queue heads promoted to enrolled",
	})

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "course_lock_wait_seconds",
		Help:    "Time spent waiting for a course serialization lock",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"outcome"})

	lockWaiters := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "course_lock_waiters",
		Help: "Callers currently waiting for a course lock",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, dbQueryDuration,
		registrationTotal, registrationDuration, dropTotal, promotionTotal, lockWait, lockWaiters, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHitRatio:        cacheHitRatio,
		dbQueryDuration:      dbQueryDuration,
		registrationTotal:    registrationTotal,
		registrationDuration: registrationDuration,
		dropTotal:            dropTotal,
		promotionTotal:       promotionTotal,
		lockWait:             lockWait,
		lockWaiters:          lockWaiters,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveRegistration implements registration.Observer.
func (m *MetricsService) ObserveRegistration(outcome, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if status == "" {
		status = "none"
	}
	m.registrationTotal.WithLabelValues(outcome, status).Inc()
	m.registrationDuration.WithLabelValues("register").Observe(duration.Seconds())
	if outcome == "ok" {
		atomic.AddUint64(&m.registrationCount, 1)
	} else {
		atomic.AddUint64(&m.rejectionCount, 1)
	}
}

// ObserveDrop implements registration.Observer.
func (m *MetricsService) ObserveDrop(outcome string, promoted bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.dropTotal.WithLabelValues(outcome).Inc()
	m.registrationDuration.WithLabelValues("drop").Observe(duration.Seconds())
	if outcome == "ok" {
		atomic.AddUint64(&m.dropCount, 1)
	}
	if promoted {
		m.promotionTotal.Inc()
		atomic.AddUint64(&m.promotionCount, 1)
	}
}

// ObserveLockWait implements registration.Observer.
func (m *MetricsService) ObserveLockWait(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(outcome).Observe(duration.Seconds())
}

// LockWaiters implements registration.Observer.
func (m *MetricsService) LockWaiters(delta int) {
	if m == nil {
		return
	}
	m.lockWaiters.Add(float64(delta))
	atomic.AddInt64(&m.waiterCount, int64(delta))
}

// Snapshot returns aggregated metrics for the JSON summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		Registrations:            atomic.LoadUint64(&m.registrationCount),
		Rejections:               atomic.LoadUint64(&m.rejectionCount),
		Drops:                    atomic.LoadUint64(&m.dropCount),
		Promotions:               atomic.LoadUint64(&m.promotionCount),
		LockWaiters:              atomic.LoadInt64(&m.waiterCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
