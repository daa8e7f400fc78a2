package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queryRequests *prometheus.CounterVec
	queryDuration prometheus.Histogram
	rowsStreamed  prometheus.Counter
)

func init() {
	queryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_requests_total",
			Help: "Total number of query requests by format and outcome",
		},
		[]string{"format", "status"},
	)
	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Wall-clock time spent executing queries",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
	rowsStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_rows_streamed_total",
			Help: "Total number of result rows streamed to clients",
		},
	)
}

// ObserveQuery records one finished query request.
func ObserveQuery(format, status string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	queryRequests.WithLabelValues(format, status).Inc()
	queryDuration.Observe(duration.Seconds())
}

// AddRowsStreamed adds to the streamed-row counter.
func AddRowsStreamed(n int64) {
	if n > 0 {
		rowsStreamed.Add(float64(n))
	}
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
