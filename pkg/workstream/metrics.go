package workstream

import "time"

// Metrics defines the interface for tracking pipeline operations and
// performance.
type Metrics interface {
	// RecordEvent records an event outcome ("received", "processed",
	// "failed", "rejected") for an event type.
	RecordEvent(eventType, outcome string)

	// RecordInvalidSignature records a rejected webhook signature.
	RecordInvalidSignature()

	// RecordBatchFlush records the size and duration of one batch flush.
	RecordBatchFlush(size int, duration time.Duration)

	// RecordCacheHit records a cache hit on a tier ("primary", "fallback").
	RecordCacheHit(tier string)

	// RecordCacheMiss records a miss across all tiers.
	RecordCacheMiss()

	// RecordCacheOperation records the duration and status of a cache
	// operation ("get", "set", "delete", "delete_pattern").
	RecordCacheOperation(operation string, duration time.Duration, err error)

	// RecordBroadcast records a broadcast attempt on a transport.
	RecordBroadcast(transport string, err error)

	// RecordAlertTransition records an alert state change
	// ("raised", "resolved") for an alert type.
	RecordAlertTransition(alertType, transition string)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordEvent(eventType, outcome string)                                 {}
func (n *NoopMetrics) RecordInvalidSignature()                                               {}
func (n *NoopMetrics) RecordBatchFlush(size int, duration time.Duration)                     {}
func (n *NoopMetrics) RecordCacheHit(tier string)                                            {}
func (n *NoopMetrics) RecordCacheMiss()                                                      {}
func (n *NoopMetrics) RecordCacheOperation(op string, duration time.Duration, err error)     {}
func (n *NoopMetrics) RecordBroadcast(transport string, err error)                           {}
func (n *NoopMetrics) RecordAlertTransition(alertType, transition string)                    {}
