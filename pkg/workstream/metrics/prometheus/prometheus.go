package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements workstream.Metrics using Prometheus.
type Metrics struct {
	eventsTotal           *prometheus.CounterVec
	invalidSignatureTotal prometheus.Counter
	batchSize             prometheus.Histogram
	batchFlushDuration    prometheus.Histogram
	cacheHitsTotal        *prometheus.CounterVec
	cacheMissesTotal      prometheus.Counter
	cacheOpsDuration      *prometheus.HistogramVec
	cacheOpsErrors        *prometheus.CounterVec
	broadcastsTotal       *prometheus.CounterVec
	alertTransitionsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),

		invalidSignatureTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_invalid_signatures_total",
			Help:      "Total number of rejected webhook signatures.",
		}),

		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of flushed batch sizes.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),

		batchFlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_flush_duration_seconds",
			Help:      "Latency of batch flushes.",
			Buckets:   prometheus.DefBuckets,
		}),

		cacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by tier.",
		}, []string{"tier"}),

		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses across all tiers.",
		}),

		cacheOpsDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_operation_duration_seconds",
			Help:      "Latency of cache operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		cacheOpsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operation_errors_total",
			Help:      "Total number of cache operation errors.",
		}, []string{"operation"}),

		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast attempts by transport and success.",
		}, []string{"transport", "success"}),

		alertTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "Total number of alert state transitions.",
		}, []string{"type", "transition"}),
	}
}

func (m *Metrics) RecordEvent(eventType, outcome string) {
	m.eventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordInvalidSignature() {
	m.invalidSignatureTotal.Inc()
}

func (m *Metrics) RecordBatchFlush(size int, duration time.Duration) {
	m.batchSize.Observe(float64(size))
	m.batchFlushDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit(tier string) {
	m.cacheHitsTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMissesTotal.Inc()
}

func (m *Metrics) RecordCacheOperation(operation string, duration time.Duration, err error) {
	m.cacheOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.cacheOpsErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) RecordBroadcast(transport string, err error) {
	m.broadcastsTotal.WithLabelValues(transport, strconv.FormatBool(err == nil)).Inc()
}

func (m *Metrics) RecordAlertTransition(alertType, transition string) {
	m.alertTransitionsTotal.WithLabelValues(alertType, transition).Inc()
}
