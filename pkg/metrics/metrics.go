package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

var (
	hitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_hits_total",
			Help: "Total number of beacon requests served",
		},
		[]string{"route"},
	)

	logWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_log_write_failures_total",
			Help: "Total number of visit lines that could not be appended to the log",
		},
		[]string{"reason"},
	)

	logWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "beacon_log_write_duration_seconds",
			Help:    "Time spent appending one visit line, lock wait included",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path"},
	)
)

// RecordHit counts a served pixel
func RecordHit(route string) {
	hitsTotal.WithLabelValues(route).Inc()
}

// RecordLogWriteFailure counts a visit that never reached the log
func RecordLogWriteFailure(reason string) {
	logWriteFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordLogWrite observes the duration of one append attempt
func RecordLogWrite(duration time.Duration) {
	logWriteDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records RED metrics for one request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// LogWriteFailures returns the current failure count for reason.
func LogWriteFailures(reason string) float64 {
	return counterValue(logWriteFailuresTotal.WithLabelValues(reason))
}

// Hits returns the current hit count for route.
func Hits(route string) float64 {
	return counterValue(hitsTotal.WithLabelValues(route))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
