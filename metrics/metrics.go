// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Queue Metrics
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noteface_jobs_enqueued_total",
			Help: "Total number of jobs handed to the job queue",
		},
		[]string{"job"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noteface_jobs_failed_total",
			Help: "Total number of jobs the job queue rejected",
		},
		[]string{"job"},
	)

	// Webhook Metrics
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noteface_webhook_outcomes_total",
			Help: "Push webhook deliveries by outcome",
		},
		[]string{"outcome"}, // "accepted", "ignored", "unauthorized", "invalid", "failed"
	)

	// Download Metrics
	DownloadsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noteface_downloads_recorded_total",
			Help: "Total number of download events appended to a log",
		},
	)

	DownloadsExempt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noteface_downloads_exempt_total",
			Help: "Downloads by authorized users that were not tracked",
		},
	)

	TrackingWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noteface_tracking_write_failures_total",
			Help: "Failed tracking writes by sink",
		},
		[]string{"sink"}, // "store", "queue"
	)

	// Stats Metrics
	MalformedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noteface_malformed_download_events_total",
			Help: "Download log entries skipped because they could not be decoded",
		},
	)

	StatsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noteface_stats_duration_seconds",
			Help:    "Time spent folding download logs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope"}, // "document", "all"
	)

	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noteface_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noteface_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordEnqueue counts one enqueue attempt
func RecordEnqueue(job string, err error) {
	if err != nil {
		JobsFailed.WithLabelValues(job).Inc()
		return
	}
	JobsEnqueued.WithLabelValues(job).Inc()
}

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordStats(scope string, duration time.Duration) {
	StatsDuration.WithLabelValues(scope).Observe(duration.Seconds())
}
