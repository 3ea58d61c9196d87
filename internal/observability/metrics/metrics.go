package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	schedulesIngested *prometheus.CounterVec
	ingestFailures    *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	routeSearches     *prometheus.CounterVec
	syncRuns          *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// New returns the singleton application metrics registry.
func New() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	metricsOnce = sync.Once{}
	metrics = nil
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	schedulesIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_schedules_ingested_total",
		Help: "Schedule messages processed by carrier and result.",
	}, []string{"carrier", "result"})
	ingestFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_ingest_failures_total",
		Help: "Schedule messages rejected during ingestion by reason.",
	}, []string{"carrier", "reason"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_departure_resolutions_total",
		Help: "Departure resolutions by answering source.",
	}, []string{"source"})
	routeSearches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_route_searches_total",
		Help: "Route searches by itinerary kind.",
	}, []string{"kind"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_sync_runs_total",
		Help: "Scheduled carrier sync runs by carrier and result.",
	}, []string{"carrier", "result"})

	registerer.MustRegister(schedulesIngested, ingestFailures, resolutions, routeSearches, syncRuns)

	return &Metrics{
		schedulesIngested: schedulesIngested,
		ingestFailures:    ingestFailures,
		resolutions:       resolutions,
		routeSearches:     routeSearches,
		syncRuns:          syncRuns,
	}
}

// RecordScheduleIngested increments ingest counts.
func (m *Metrics) RecordScheduleIngested(carrier, result string) {
	if m == nil {
		return
	}
	m.schedulesIngested.WithLabelValues(normalizeLabel(carrier), normalizeLabel(result)).Inc()
}

// RecordIngestFailure increments ingest failure counts.
func (m *Metrics) RecordIngestFailure(carrier, reason string) {
	if m == nil {
		return
	}
	m.ingestFailures.WithLabelValues(normalizeLabel(carrier), normalizeLabel(reason)).Inc()
}

// RecordResolution increments resolution counts by source.
func (m *Metrics) RecordResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(source)).Inc()
}

// RecordRouteSearch increments route search counts by kind.
func (m *Metrics) RecordRouteSearch(kind string) {
	if m == nil {
		return
	}
	m.routeSearches.WithLabelValues(normalizeLabel(kind)).Inc()
}

// RecordSyncRun increments scheduled sync counts.
func (m *Metrics) RecordSyncRun(carrier, result string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(normalizeLabel(carrier), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}

// HTTPMetrics instruments the gin HTTP surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *HTTPMetrics
)

// NewHTTPMetrics returns the singleton HTTP metrics registry.
func NewHTTPMetrics() *HTTPMetrics {
	httpMetricsOnce.Do(func() {
		httpMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)
	})
	return httpMetrics
}

func newHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boxlane_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boxlane_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route", "method"})

	registerer.MustRegister(requests, duration)

	return &HTTPMetrics{requests: requests, duration: duration}
}

// GinMiddleware records request counts and latency.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
