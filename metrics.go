package RSClientGo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics, registered with the default registry.
// Expose them from your own process with promhttp.Handler() if needed.
var (
	rsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsclient_requests_total",
		Help: "Total platform API requests by method and HTTP status",
	}, []string{"method", "status"})

	rsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rsclient_request_duration_seconds",
		Help:    "Platform API request duration in seconds by method, including transport retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})

	rsRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsclient_retries_total",
		Help: "Total transport-level retry attempts by method",
	}, []string{"method"})

	rsRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsclient_retry_exhausted_total",
		Help: "Total number of requests that failed after all transport retries",
	}, []string{"method"})

	rsSearchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsclient_search_pages_total",
		Help: "Total search pages fetched by subject",
	}, []string{"subject"})

	rsExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsclient_exports_total",
		Help: "Total export jobs by subject and outcome",
	}, []string{"subject", "outcome"})
)
