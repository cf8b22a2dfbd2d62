package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, caching and the adoption workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	applicationsSubmitted prometheus.Counter
	applicationDecisions  *prometheus.CounterVec
	slotBookings          *prometheus.CounterVec
	agreementsCreated     prometheus.Counter
	reportsSubmitted      prometheus.Counter
	remindersSent         prometheus.Counter
	notifications         *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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
		Help:    "Latency for cache operations",
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	applicationsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adoption_applications_submitted_total",
		Help: "Adoption applications accepted",
	})

	applicationDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adoption_application_decisions_total",
		Help: "Application status changes by resulting status",
	}, []string{"status"})

	slotBookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_slot_bookings_total",
		Help: "Slot booking attempts by outcome",
	}, []string{"result"})

	agreementsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adoption_agreements_created_total",
		Help: "Adoption agreements finalized",
	})

	reportsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "post_adoption_reports_submitted_total",
		Help: "Post-adoption reports submitted by candidates",
	})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "post_adoption_reminders_total",
		Help: "Reminders emitted for overdue post-adoption reports",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification deliveries by outcome",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		applicationsSubmitted, applicationDecisions, slotBookings, agreementsCreated, reportsSubmitted, remindersSent,
		notifications, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		cacheLatency:          cacheLatency,
		cacheWrite:            cacheWrite,
		cacheHitRatio:         cacheHitRatio,
		cacheHits:             cacheHits,
		cacheMisses:           cacheMisses,
		applicationsSubmitted: applicationsSubmitted,
		applicationDecisions:  applicationDecisions,
		slotBookings:          slotBookings,
		agreementsCreated:     agreementsCreated,
		reportsSubmitted:      reportsSubmitted,
		remindersSent:         remindersSent,
		notifications:         notifications,
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

// RegisterGauge exposes a value sampled at scrape time, such as a queue depth.
func (m *MetricsService) RegisterGauge(name, help string, sample func() float64) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, sample))
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ApplicationSubmitted counts an accepted application.
func (m *MetricsService) ApplicationSubmitted() {
	if m == nil {
		return
	}
	m.applicationsSubmitted.Inc()
}

// ApplicationDecided counts an application moving to status.
func (m *MetricsService) ApplicationDecided(status models.ApplicationStatus) {
	if m == nil {
		return
	}
	m.applicationDecisions.WithLabelValues(string(status)).Inc()
}

// SlotBooking counts a booking attempt; result is "booked" or a short failure reason.
func (m *MetricsService) SlotBooking(result string) {
	if m == nil {
		return
	}
	m.slotBookings.WithLabelValues(result).Inc()
}

// AgreementCreated counts a finalized adoption.
func (m *MetricsService) AgreementCreated() {
	if m == nil {
		return
	}
	m.agreementsCreated.Inc()
}

// ReportSubmitted counts a post-adoption report submission.
func (m *MetricsService) ReportSubmitted() {
	if m == nil {
		return
	}
	m.reportsSubmitted.Inc()
}

// RemindersSent adds n emitted reminders.
func (m *MetricsService) RemindersSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersSent.Add(float64(n))
}

// Notification counts a delivery outcome: delivered, dropped or failed.
func (m *MetricsService) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
