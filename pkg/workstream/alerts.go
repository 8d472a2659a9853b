package workstream

import (
	"fmt"
	"time"
)

// AlertType names a monitored condition. At most one active alert exists
// per type.
type AlertType string

const (
	AlertSuccessRate    AlertType = "success_rate"
	AlertProcessingTime AlertType = "processing_time"
	AlertErrorRate      AlertType = "error_rate"
	AlertQueueSize      AlertType = "queue_size"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a raised threshold breach. ResolvedAt is set once the condition
// clears on a later evaluation.
type Alert struct {
	Type       AlertType  `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	Threshold  float64    `json:"threshold"`
	RaisedAt   time.Time  `json:"raisedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// AlertTransition is the kind of history entry.
type AlertTransition string

const (
	AlertRaised   AlertTransition = "raised"
	AlertResolved AlertTransition = "resolved"
)

// AlertRecord is one entry in the capped alert history.
type AlertRecord struct {
	Transition AlertTransition `json:"transition"`
	Alert      Alert           `json:"alert"`
	At         time.Time       `json:"at"`
}

// alertHistorySize caps the history; the oldest entries drop first.
const alertHistorySize = 100

// AlertThresholds configures the four monitored conditions.
type AlertThresholds struct {
	// MinSuccessRate is the success-rate floor in percent.
	MinSuccessRate float64 `json:"minSuccessRate"`

	// MaxProcessingMS is the average processing-time ceiling in
	// milliseconds.
	MaxProcessingMS float64 `json:"maxProcessingMs"`

	// MaxErrorRate is the error-rate ceiling in percent.
	MaxErrorRate float64 `json:"maxErrorRate"`

	// MaxQueueSize is the queue-depth ceiling.
	MaxQueueSize int `json:"maxQueueSize"`
}

// DefaultThresholds returns the stock alert thresholds.
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		MinSuccessRate:  95,
		MaxProcessingMS: 1000,
		MaxErrorRate:    5,
		MaxQueueSize:    50,
	}
}

func (t *AlertThresholds) applyDefaults() {
	def := DefaultThresholds()
	if t.MinSuccessRate <= 0 {
		t.MinSuccessRate = def.MinSuccessRate
	}
	if t.MaxProcessingMS <= 0 {
		t.MaxProcessingMS = def.MaxProcessingMS
	}
	if t.MaxErrorRate <= 0 {
		t.MaxErrorRate = def.MaxErrorRate
	}
	if t.MaxQueueSize <= 0 {
		t.MaxQueueSize = def.MaxQueueSize
	}
}

// AlertThresholdPatch is a partial threshold update; nil fields keep their
// current value.
type AlertThresholdPatch struct {
	MinSuccessRate  *float64 `json:"minSuccessRate,omitempty"`
	MaxProcessingMS *float64 `json:"maxProcessingMs,omitempty"`
	MaxErrorRate    *float64 `json:"maxErrorRate,omitempty"`
	MaxQueueSize    *int     `json:"maxQueueSize,omitempty"`
}

// AlertStatus is the operator view of the alert subsystem.
type AlertStatus struct {
	Active     []Alert         `json:"active"`
	History    []AlertRecord   `json:"history"`
	Thresholds AlertThresholds `json:"thresholds"`
}

// Configure merges a partial threshold update.
func (m *Monitor) Configure(patch AlertThresholdPatch) AlertThresholds {
	m.mu.Lock()
	defer m.mu.Unlock()

	if patch.MinSuccessRate != nil {
		m.thresholds.MinSuccessRate = *patch.MinSuccessRate
	}
	if patch.MaxProcessingMS != nil {
		m.thresholds.MaxProcessingMS = *patch.MaxProcessingMS
	}
	if patch.MaxErrorRate != nil {
		m.thresholds.MaxErrorRate = *patch.MaxErrorRate
	}
	if patch.MaxQueueSize != nil {
		m.thresholds.MaxQueueSize = *patch.MaxQueueSize
	}
	return m.thresholds
}

// Thresholds returns the current threshold configuration.
func (m *Monitor) Thresholds() AlertThresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholds
}

// Evaluate runs one evaluation pass against the current counters: breaches
// with no active alert raise one, persisting breaches keep the existing
// alert, and cleared conditions resolve theirs into history. It returns the
// active alerts after the pass.
func (m *Monitor) Evaluate(queueDepth int) []Alert {
	_, avgMS, _ := m.procTimes.Stats()
	samples := m.procTimes.Len()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.snapshotLocked(queueDepth)

	// Rates are meaningless before any event arrives; processing time needs
	// at least one sample.
	if stats.EventsReceived > 0 {
		m.check(AlertSuccessRate, SeverityCritical,
			stats.SuccessRate < m.thresholds.MinSuccessRate,
			stats.SuccessRate, m.thresholds.MinSuccessRate,
			fmt.Sprintf("success rate %.1f%% below %.1f%%", stats.SuccessRate, m.thresholds.MinSuccessRate))
		m.check(AlertErrorRate, SeverityCritical,
			stats.ErrorRate > m.thresholds.MaxErrorRate,
			stats.ErrorRate, m.thresholds.MaxErrorRate,
			fmt.Sprintf("error rate %.1f%% above %.1f%%", stats.ErrorRate, m.thresholds.MaxErrorRate))
	}
	if samples > 0 {
		m.check(AlertProcessingTime, SeverityWarning,
			avgMS > m.thresholds.MaxProcessingMS,
			avgMS, m.thresholds.MaxProcessingMS,
			fmt.Sprintf("average processing time %.0fms above %.0fms", avgMS, m.thresholds.MaxProcessingMS))
	}
	m.check(AlertQueueSize, SeverityWarning,
		queueDepth > m.thresholds.MaxQueueSize,
		float64(queueDepth), float64(m.thresholds.MaxQueueSize),
		fmt.Sprintf("queue depth %d above %d", queueDepth, m.thresholds.MaxQueueSize))

	return m.activeLocked()
}

// check advances the state machine for one alert type. Callers hold m.mu.
func (m *Monitor) check(t AlertType, severity Severity, breached bool, value, threshold float64, message string) {
	current, isActive := m.active[t]

	switch {
	case breached && !isActive:
		alert := &Alert{
			Type:      t,
			Severity:  severity,
			Message:   message,
			Value:     value,
			Threshold: threshold,
			RaisedAt:  time.Now().UTC(),
		}
		m.active[t] = alert
		m.appendHistoryLocked(AlertRecord{Transition: AlertRaised, Alert: *alert, At: alert.RaisedAt})
		m.metrics.RecordAlertTransition(string(t), string(AlertRaised))
		m.logger.Warn("alert raised",
			Field{"type", string(t)},
			Field{"severity", string(severity)},
			Field{"message", message},
		)

	case breached && isActive:
		// Condition persists; keep the existing alert, update the observed
		// value for the operator view.
		current.Value = value
		current.Message = message

	case !breached && isActive:
		now := time.Now().UTC()
		current.ResolvedAt = &now
		delete(m.active, t)
		m.appendHistoryLocked(AlertRecord{Transition: AlertResolved, Alert: *current, At: now})
		m.metrics.RecordAlertTransition(string(t), string(AlertResolved))
		m.logger.Info("alert resolved", Field{"type", string(t)})
	}
}

func (m *Monitor) appendHistoryLocked(rec AlertRecord) {
	m.history = append(m.history, rec)
	if len(m.history) > alertHistorySize {
		m.history = m.history[len(m.history)-alertHistorySize:]
	}
}

// ActiveAlerts returns the currently active alerts.
func (m *Monitor) ActiveAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

func (m *Monitor) activeLocked() []Alert {
	out := make([]Alert, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, *a)
	}
	return out
}

// History returns a copy of the alert history, oldest first.
func (m *Monitor) History() []AlertRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AlertRecord, len(m.history))
	copy(out, m.history)
	return out
}
