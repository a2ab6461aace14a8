// Package metrics holds the Prometheus collectors for the grading
// server: HTTP request counts/latency and submission grading outcomes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every Prometheus metric the server exports.
type Collector struct {
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	submissionsTotal  *prometheus.CounterVec
	submissionGrade   prometheus.Histogram
	queueDepth        prometheus.Gauge
	permitsAvailable  prometheus.Gauge
}

var (
	instance *Collector
	once     sync.Once
)

// NewCollector returns the process-wide Collector, registering every
// metric against the global default registry exactly once — promauto
// panics on duplicate registration, and httpapi.New may be constructed
// more than once within a test binary.
func NewCollector() *Collector {
	once.Do(func() {
		instance = newCollector()
	})
	return instance
}

func newCollector() *Collector {
	return &Collector{
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autograder_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autograder_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		submissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autograder_submissions_total",
				Help: "Total number of graded submissions by outcome",
			},
			[]string{"outcome"}, // passed, failed, errored
		),
		submissionGrade: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autograder_submission_grade_duration_seconds",
				Help:    "Wall time to build and grade one submission",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "autograder_scheduler_queue_depth",
				Help: "Number of jobs currently waiting in the dispatcher queue",
			},
		),
		permitsAvailable: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "autograder_scheduler_permits_available",
				Help: "Number of grading permits not currently held by an in-flight job",
			},
		),
	}
}

// RecordRequest records one HTTP request's outcome and latency.
func (c *Collector) RecordRequest(route, method, status string, seconds float64) {
	c.requestTotal.WithLabelValues(route, method, status).Inc()
	c.requestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordSubmission records one grading job's outcome and duration.
func (c *Collector) RecordSubmission(outcome string, seconds float64) {
	c.submissionsTotal.WithLabelValues(outcome).Inc()
	c.submissionGrade.Observe(seconds)
}

// SetQueueDepth reports the dispatcher's current backlog.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}

// SetPermitsAvailable reports the dispatcher's current spare concurrency.
func (c *Collector) SetPermitsAvailable(n int) {
	c.permitsAvailable.Set(float64(n))
}
