package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UploadsTotal  *prometheus.CounterVec
	UploadedBytes prometheus.Counter
	DeletesTotal  *prometheus.CounterVec
	OrphansSwept  prometheus.Counter
}

// New registers the gallery collectors on a private registry, so several
// instances (tests) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gallery_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_uploads_total",
			Help: "Upload attempts by result.",
		}, []string{"result"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_uploaded_bytes_total",
			Help: "Bytes written to the content directory.",
		}),
		DeletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_deletes_total",
			Help: "Delete attempts by result.",
		}, []string{"result"}),
		OrphansSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_orphan_files_removed_total",
			Help: "Files removed by the orphan sweep.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UploadsTotal,
		m.UploadedBytes,
		m.DeletesTotal,
		m.OrphansSwept,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Record* methods are no-ops on a nil *Metrics.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpload(result string, size int64) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(result).Inc()
	if size > 0 {
		m.UploadedBytes.Add(float64(size))
	}
}

func (m *Metrics) RecordDelete(result string) {
	if m == nil {
		return
	}
	m.DeletesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOrphans(n int) {
	if m == nil {
		return
	}
	m.OrphansSwept.Add(float64(n))
}
