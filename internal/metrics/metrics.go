package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pmconsole"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Backend calls by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Backend call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciler_verdicts_total",
			Help:      "Reconciler verdicts by operation.",
		},
		[]string{"operation", "verdict"},
	)

	refreshConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_confirmations_total",
			Help:      "Post-booking confirmation loops by result.",
		},
		[]string{"result"},
	)

	enrichmentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Property lookups that failed while listing reservations.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, upstreamCalls, upstreamLatency, verdicts, refreshConfirmations, enrichmentFailures)
	})
}

func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// ObserveUpstream records one backend call.
func ObserveUpstream(endpoint, outcome string, took time.Duration) {
	upstreamCalls.WithLabelValues(endpoint, outcome).Inc()
	upstreamLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

func IncVerdict(operation, verdict string) {
	verdicts.WithLabelValues(operation, verdict).Inc()
}

func IncRefresh(result string) {
	refreshConfirmations.WithLabelValues(result).Inc()
}

func IncEnrichmentFailure() {
	enrichmentFailures.Inc()
}
