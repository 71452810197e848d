package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the interview prep service.
// Metrics are organized by subsystem: runs, batches, skills, external service
// calls, and rate limiting. All collectors are registered via promauto with
// the default Prometheus registry.
type Metrics struct {
	// RunsStarted counts the total number of pipeline runs initiated.
	RunsStarted prometheus.Counter

	// RunsCompleted counts runs that drained normally with a complete event.
	RunsCompleted prometheus.Counter

	// RunsTimedOut counts runs terminated by the deadline supervisor.
	RunsTimedOut prometheus.Counter

	// RunsFailed counts runs aborted pre-flight (configuration/validation).
	RunsFailed prometheus.Counter

	// RunDuration observes the end-to-end duration of runs in seconds.
	RunDuration prometheus.Histogram

	// BatchesCompleted counts finished batch pipelines, labeled by outcome
	// (success, partial, failure).
	BatchesCompleted *prometheus.CounterVec

	// BatchSplits counts token-budget splits performed inside batch pipelines.
	BatchSplits prometheus.Counter

	// SkillsProcessed counts skills that produced a data event.
	SkillsProcessed prometheus.Counter

	// SkillsFailed counts skills that produced a skill-scoped error event.
	SkillsFailed prometheus.Counter

	// ServiceRequestsTotal counts external service calls, labeled by service.
	ServiceRequestsTotal *prometheus.CounterVec

	// ServiceRequestsFailed counts failed external service calls, labeled by
	// service and error classification.
	ServiceRequestsFailed *prometheus.CounterVec

	// ServiceRequestDuration observes external call duration in seconds,
	// labeled by service.
	ServiceRequestDuration *prometheus.HistogramVec

	// ServiceRetries counts retry attempts, labeled by service.
	ServiceRetries *prometheus.CounterVec

	// RateLimitWaits counts blocking waits in the sliding-window limiter,
	// labeled by service.
	RateLimitWaits *prometheus.CounterVec

	// RateLimitWaitDuration observes time spent waiting for a limiter slot
	// in seconds, labeled by service.
	RateLimitWaitDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of pipeline runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of pipeline runs that completed normally",
		}),
		RunsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_timed_out_total",
			Help:      "Total number of pipeline runs stopped by the global deadline",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of pipeline runs aborted before any work started",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end duration of pipeline runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		BatchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_completed_total",
			Help:      "Total number of batch pipelines finished, by outcome",
		}, []string{"outcome"}),
		BatchSplits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_splits_total",
			Help:      "Total number of token-budget batch splits",
		}),
		SkillsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skills_processed_total",
			Help:      "Total number of skills that produced generated questions",
		}),
		SkillsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skills_failed_total",
			Help:      "Total number of skills that failed question generation",
		}),
		ServiceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_requests_total",
			Help:      "Total number of external service calls, by service",
		}, []string{"service"}),
		ServiceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_requests_failed_total",
			Help:      "Total number of failed external service calls, by service and classification",
		}, []string{"service", "classification"}),
		ServiceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_request_duration_seconds",
			Help:      "Duration of external service calls in seconds, by service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		ServiceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_retries_total",
			Help:      "Total number of retry attempts, by service",
		}, []string{"service"}),
		RateLimitWaits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Total number of blocking waits for a rate limiter slot, by service",
		}, []string{"service"}),
		RateLimitWaitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_duration_seconds",
			Help:      "Time spent waiting for a rate limiter slot in seconds, by service",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"service"}),
	}
}
