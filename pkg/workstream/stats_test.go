package workstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)

	m.RecordReceived(EventWorkItemCreated)
	m.RecordReceived(EventWorkItemCreated)
	m.RecordReceived(EventWorkItemUpdated)
	m.RecordProcessed(EventWorkItemCreated, 10*time.Millisecond)
	m.RecordProcessed(EventWorkItemCreated, 30*time.Millisecond)
	m.RecordFailed(EventWorkItemUpdated)
	m.RecordInvalidSignature()

	stats := m.Snapshot(4)
	assert.Equal(t, uint64(3), stats.EventsReceived)
	assert.Equal(t, uint64(2), stats.EventsProcessed)
	assert.Equal(t, uint64(1), stats.EventsFailed)
	assert.Equal(t, uint64(1), stats.InvalidSignature)
	assert.Equal(t, 4, stats.QueueDepth)
	assert.Equal(t, uint64(2), stats.ByType[EventWorkItemCreated])
	assert.Equal(t, uint64(1), stats.ByType[EventWorkItemUpdated])
	assert.InDelta(t, 66.66, stats.SuccessRate, 0.1)
	assert.InDelta(t, 33.33, stats.ErrorRate, 0.1)
	assert.InDelta(t, 20, stats.AvgProcessingMS, 0.01)
	assert.False(t, stats.StartedAt.IsZero())
}

func TestMonitor_SnapshotEmpty(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)

	stats := m.Snapshot(0)
	assert.Zero(t, stats.EventsReceived)
	assert.Zero(t, stats.SuccessRate)
	assert.Zero(t, stats.ErrorRate)
	assert.Zero(t, stats.AvgProcessingMS)
}

func TestMonitor_Latency(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)

	m.RecordProcessed(EventWorkItemCreated, 5*time.Millisecond)
	m.RecordProcessed(EventWorkItemCreated, 15*time.Millisecond)
	m.RecordProcessed(EventWorkItemCreated, 40*time.Millisecond)

	lat := m.Latency()
	assert.InDelta(t, 5, lat.MinMS, 0.01)
	assert.InDelta(t, 20, lat.AvgMS, 0.01)
	assert.InDelta(t, 40, lat.MaxMS, 0.01)
	assert.Equal(t, 3, lat.Samples)
}

func TestMonitor_DetailedMetrics(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)
	m.RecordReceived(EventWorkItemCreated)
	m.RecordProcessed(EventWorkItemCreated, time.Millisecond)

	dm, err := m.DetailedMetrics("7d", 2)
	require.NoError(t, err)
	assert.Equal(t, "7d", dm.Timeframe)
	assert.Equal(t, 7*24*time.Hour, dm.Window)
	assert.Equal(t, uint64(1), dm.Statistics.EventsReceived)
	assert.Equal(t, 2, dm.Statistics.QueueDepth)
	// Uptime is far below the window, so the rate spans actual uptime and
	// must be positive.
	assert.Greater(t, dm.EventsPerHour, float64(0))
	assert.Empty(t, dm.ActiveAlerts)
}

func TestMonitor_DetailedMetricsInvalidTimeframe(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)

	_, err := m.DetailedMetrics("yesterday", 0)
	assert.ErrorIs(t, err, ErrInvalidTimeframe)
}

func TestMonitor_Reset(t *testing.T) {
	m := NewMonitor(AlertThresholds{}, nil, nil)
	m.RecordReceived(EventWorkItemCreated)
	m.RecordProcessed(EventWorkItemCreated, time.Millisecond)
	m.RecordFailed(EventWorkItemCreated)
	m.RecordInvalidSignature()
	before := m.Snapshot(0).StartedAt

	m.Reset()

	stats := m.Snapshot(0)
	assert.Zero(t, stats.EventsReceived)
	assert.Zero(t, stats.EventsProcessed)
	assert.Zero(t, stats.EventsFailed)
	assert.Zero(t, stats.InvalidSignature)
	assert.Empty(t, stats.ByType)
	assert.Zero(t, m.Latency().Samples)
	assert.False(t, stats.StartedAt.Before(before))
}
