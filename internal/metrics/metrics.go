package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend metrics
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srttrans_backend_calls_total",
			Help: "Total number of translation backend calls",
		},
		[]string{"result"},
	)

	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srttrans_line_fallbacks_total",
			Help: "Caption blocks retried line by line after a block failure",
		},
	)

	UntranslatedLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srttrans_untranslated_lines_total",
			Help: "Lines kept in the source language after a failed call",
		},
	)

	CacheAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srttrans_cache_access_total",
			Help: "Translation cache lookups",
		},
		[]string{"result"},
	)

	// File and batch metrics
	CaptionsTranslatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srttrans_captions_translated_total",
			Help: "Total number of captions passed through the translator",
		},
	)

	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srttrans_files_processed_total",
			Help: "Total number of subtitle files processed",
		},
		[]string{"status"},
	)

	FileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "srttrans_file_duration_seconds",
			Help:    "Time spent translating one subtitle file",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		},
	)

	BatchesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srttrans_batches_completed_total",
			Help: "Total number of finished batch runs",
		},
		[]string{"status"},
	)

	RunsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "srttrans_runs_queue_depth",
			Help: "Number of batch runs waiting in queue",
		},
	)

	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srttrans_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)

// ObserveBackendCall counts one backend call by outcome.
func ObserveBackendCall(err error) {
	if err != nil {
		BackendCallsTotal.WithLabelValues("failure").Inc()
		return
	}
	BackendCallsTotal.WithLabelValues("success").Inc()
}

func RecordCacheAccess(hit bool) {
	if hit {
		CacheAccessTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheAccessTotal.WithLabelValues("miss").Inc()
}

func RecordFileProcessed(status string, seconds float64) {
	FilesProcessedTotal.WithLabelValues(status).Inc()
	FileDuration.Observe(seconds)
}

func RecordBatchCompleted(status string) {
	BatchesCompletedTotal.WithLabelValues(status).Inc()
}

func SetQueueDepth(n int) {
	RunsQueueDepth.Set(float64(n))
}

func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
