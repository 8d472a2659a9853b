package workstream

import (
	"sync"
	"time"
)

// processingWindowSize bounds the recent processing-time sample window.
const processingWindowSize = 100

// Statistics is a point-in-time snapshot of the pipeline's rolling counters
// and the metrics derived from them.
type Statistics struct {
	EventsReceived   uint64               `json:"eventsReceived"`
	EventsProcessed  uint64               `json:"eventsProcessed"`
	EventsFailed     uint64               `json:"eventsFailed"`
	InvalidSignature uint64               `json:"invalidSignature"`
	ByType           map[EventType]uint64 `json:"byType,omitempty"`
	QueueDepth       int                  `json:"queueDepth"`
	SuccessRate      float64              `json:"successRate"`
	ErrorRate        float64              `json:"errorRate"`
	AvgProcessingMS  float64              `json:"avgProcessingMs"`
	StartedAt        time.Time            `json:"startedAt"`
}

// LatencyStats summarizes the processing-time sample window.
type LatencyStats struct {
	MinMS   float64 `json:"minMs"`
	AvgMS   float64 `json:"avgMs"`
	MaxMS   float64 `json:"maxMs"`
	Samples int     `json:"samples"`
}

// DetailedMetrics extends Statistics with rate and latency detail for an
// operator-selected timeframe. The pipeline keeps no historical series;
// rates are derived from the rolling counters and actual uptime.
type DetailedMetrics struct {
	Timeframe     string        `json:"timeframe"`
	Window        time.Duration `json:"window"`
	Statistics    Statistics    `json:"statistics"`
	EventsPerHour float64       `json:"eventsPerHour"`
	Latency       LatencyStats  `json:"latency"`
	ActiveAlerts  []Alert       `json:"activeAlerts"`
}

// Monitor tracks rolling statistics and drives the threshold alert state
// machine. Derived metrics are computed on every query, never stored.
type Monitor struct {
	mu sync.Mutex

	received   uint64
	processed  uint64
	failed     uint64
	invalidSig uint64
	byType     map[EventType]uint64
	procTimes  *Window
	startedAt  time.Time

	thresholds AlertThresholds
	active     map[AlertType]*Alert
	history    []AlertRecord

	logger  Logger
	metrics Metrics
}

// NewMonitor creates a Monitor with the given thresholds; zero-valued
// thresholds fall back to defaults.
func NewMonitor(thresholds AlertThresholds, logger Logger, metrics Metrics) *Monitor {
	if logger == nil {
		logger = &NoopLogger{}
	}
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	thresholds.applyDefaults()
	return &Monitor{
		byType:     make(map[EventType]uint64),
		procTimes:  NewWindow(processingWindowSize),
		startedAt:  time.Now().UTC(),
		thresholds: thresholds,
		active:     make(map[AlertType]*Alert),
		logger:     logger,
		metrics:    metrics,
	}
}

// RecordReceived counts an accepted, queued event.
func (m *Monitor) RecordReceived(t EventType) {
	m.mu.Lock()
	m.received++
	m.byType[t]++
	m.mu.Unlock()
	m.metrics.RecordEvent(string(t), "received")
}

// RecordProcessed counts a successfully handled event and samples its
// processing time.
func (m *Monitor) RecordProcessed(t EventType, d time.Duration) {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
	m.procTimes.Add(float64(d) / float64(time.Millisecond))
	m.metrics.RecordEvent(string(t), "processed")
}

// RecordFailed counts an event whose handler failed.
func (m *Monitor) RecordFailed(t EventType) {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
	m.metrics.RecordEvent(string(t), "failed")
}

// RecordInvalidSignature counts a rejected webhook signature.
func (m *Monitor) RecordInvalidSignature() {
	m.mu.Lock()
	m.invalidSig++
	m.mu.Unlock()
	m.metrics.RecordInvalidSignature()
}

// Snapshot derives the current statistics for the given queue depth.
func (m *Monitor) Snapshot(queueDepth int) Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(queueDepth)
}

func (m *Monitor) snapshotLocked(queueDepth int) Statistics {
	stats := Statistics{
		EventsReceived:   m.received,
		EventsProcessed:  m.processed,
		EventsFailed:     m.failed,
		InvalidSignature: m.invalidSig,
		ByType:           make(map[EventType]uint64, len(m.byType)),
		QueueDepth:       queueDepth,
		StartedAt:        m.startedAt,
	}
	for t, n := range m.byType {
		stats.ByType[t] = n
	}
	if m.received > 0 {
		stats.SuccessRate = float64(m.processed) / float64(m.received) * 100
		stats.ErrorRate = float64(m.failed) / float64(m.received) * 100
	}
	_, stats.AvgProcessingMS, _ = m.procTimes.Stats()
	return stats
}

// Latency summarizes the processing-time window.
func (m *Monitor) Latency() LatencyStats {
	min, avg, max := m.procTimes.Stats()
	return LatencyStats{MinMS: min, AvgMS: avg, MaxMS: max, Samples: m.procTimes.Len()}
}

// DetailedMetrics builds the operator metrics view for a timeframe such as
// "24h", "7d", "2w" or "1m". The event rate is computed over the smaller of
// the timeframe and actual uptime.
func (m *Monitor) DetailedMetrics(timeframe string, queueDepth int) (DetailedMetrics, error) {
	window, err := ParseTimeframe(timeframe)
	if err != nil {
		return DetailedMetrics{}, err
	}

	stats := m.Snapshot(queueDepth)

	span := time.Since(stats.StartedAt)
	if span > window {
		span = window
	}
	var perHour float64
	if hours := span.Hours(); hours > 0 {
		perHour = float64(stats.EventsReceived) / hours
	}

	return DetailedMetrics{
		Timeframe:     timeframe,
		Window:        window,
		Statistics:    stats,
		EventsPerHour: perHour,
		Latency:       m.Latency(),
		ActiveAlerts:  m.Evaluate(queueDepth),
	}, nil
}

// Reset zeroes all counters and the processing-time window. Alert state is
// left untouched; a later evaluation resolves alerts naturally.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.received = 0
	m.processed = 0
	m.failed = 0
	m.invalidSig = 0
	m.byType = make(map[EventType]uint64)
	m.startedAt = time.Now().UTC()
	m.mu.Unlock()
	m.procTimes.Reset()
}
