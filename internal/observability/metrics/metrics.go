package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "oilhub_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	aggregationLatency *prometheus.HistogramVec
	commitTotal        *prometheus.CounterVec
	commitLatency      *prometheus.HistogramVec
	violationsTotal    *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	lockWaitLatency    prometheus.Histogram
)

// Init registers the allocation metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregation_latency_seconds",
				Help:    "Source catalog aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)
		commitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "allocation_commits_total",
				Help: "Allocation commit attempts by result",
			},
			[]string{"result"},
		)
		commitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "allocation_commit_latency_seconds",
				Help:    "Allocation commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		violationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "allocation_violations_total",
				Help: "Allocation line violations by reason",
			},
			[]string{"reason"},
		)
		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "order_transitions_total",
				Help: "Order status transitions by target status and result",
			},
			[]string{"to", "result"},
		)
		lockWaitLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "order_lock_wait_seconds",
				Help:    "Time spent waiting for a per-order lock",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(
			aggregationLatency,
			commitTotal,
			commitLatency,
			violationsTotal,
			transitionsTotal,
			lockWaitLatency,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveAggregation(operation, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if aggregationLatency != nil {
		aggregationLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

func ObserveCommit(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if commitTotal != nil {
		commitTotal.WithLabelValues(result).Inc()
	}
	if commitLatency != nil {
		commitLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncViolation(reason string) {
	if violationsTotal != nil {
		violationsTotal.WithLabelValues(reason).Inc()
	}
}

func IncTransition(to, result string) {
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(to, result).Inc()
	}
}

func ObserveLockWait(duration time.Duration) {
	if lockWaitLatency != nil {
		lockWaitLatency.Observe(duration.Seconds())
	}
}
