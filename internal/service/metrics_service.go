package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the realtime feed.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	feedPublished   *prometheus.CounterVec
	sseClients      prometheus.Gauge
	notifications   *prometheus.CounterVec
	aggregateTime   prometheus.Histogram
}

// NewMetricsService registers the core Prometheus collectors.
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

	feedPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_events_published_total",
		Help: "Change feed events broadcast, by table",
	}, []string{"table"})

	sseClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_stream_clients",
		Help: "Currently connected event stream clients",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finalize_notifications_total",
		Help: "Finalize notification attempts, by outcome",
	}, []string{"outcome"})

	aggregateTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatmap_aggregate_duration_seconds",
		Help:    "Time spent recomputing availability heatmaps",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, feedPublished, sseClients, notifications, aggregateTime, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		feedPublished:   feedPublished,
		sseClients:      sseClients,
		notifications:   notifications,
		aggregateTime:   aggregateTime,
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

// RecordFeedPublish counts one change feed broadcast.
func (m *MetricsService) RecordFeedPublish(table string) {
	if m == nil {
		return
	}
	m.feedPublished.WithLabelValues(table).Inc()
}

// StreamClientConnected tracks one event stream subscriber coming or going.
func (m *MetricsService) StreamClientConnected(delta int) {
	if m == nil {
		return
	}
	m.sseClients.Add(float64(delta))
}

// RecordNotification counts one finalize notification attempt.
func (m *MetricsService) RecordNotification(ok bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// ObserveAggregate records one heatmap recompute.
func (m *MetricsService) ObserveAggregate(duration time.Duration) {
	if m == nil {
		return
	}
	m.aggregateTime.Observe(duration.Seconds())
}
