package workstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Empty(t *testing.T) {
	w := NewWindow(10)

	min, avg, max := w.Stats()
	assert.Zero(t, min)
	assert.Zero(t, avg)
	assert.Zero(t, max)
	assert.Zero(t, w.Len())
}

func TestWindow_PartiallyFilled(t *testing.T) {
	w := NewWindow(10)
	w.Add(4)
	w.Add(8)
	w.Add(12)

	min, avg, max := w.Stats()
	assert.Equal(t, float64(4), min)
	assert.Equal(t, float64(8), avg)
	assert.Equal(t, float64(12), max)
	assert.Equal(t, 3, w.Len())
}

func TestWindow_EvictsOldestWhenFull(t *testing.T) {
	w := NewWindow(100)
	for i := 1; i <= 150; i++ {
		w.Add(float64(i))
	}

	// Only the last 100 samples (51..150) remain.
	min, avg, max := w.Stats()
	assert.Equal(t, 100, w.Len())
	assert.Equal(t, float64(51), min)
	assert.Equal(t, float64(150), max)
	assert.InDelta(t, 100.5, avg, 0.001)
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(5)
	w.Add(1)
	w.Add(2)

	w.Reset()

	assert.Zero(t, w.Len())
	_, avg, _ := w.Stats()
	assert.Zero(t, avg)
}
