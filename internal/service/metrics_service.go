package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the change workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submitted       *prometheus.CounterVec
	resolved        *prometheus.CounterVec
	documents       prometheus.Counter
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

	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_requests_submitted_total",
		Help: "Total change requests submitted",
	}, []string{"kind"})

	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_requests_resolved_total",
		Help: "Total change requests resolved",
	}, []string{"kind", "decision"})

	documents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "approval_documents_generated_total",
		Help: "Total approval documents rendered",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submitted, resolved, documents, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submitted:       submitted,
		resolved:        resolved,
		documents:       documents,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRequestSubmitted counts a submitted change request by kind.
func (m *MetricsService) RecordRequestSubmitted(kind models.ChangeKind) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(string(kind)).Inc()
}

// RecordRequestResolved counts a resolved change request by kind and decision.
func (m *MetricsService) RecordRequestResolved(kind models.ChangeKind, status models.RequestStatus) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(string(kind), string(status)).Inc()
}

// RecordDocumentGenerated counts a rendered approval document.
func (m *MetricsService) RecordDocumentGenerated() {
	if m == nil {
		return
	}
	m.documents.Inc()
}
