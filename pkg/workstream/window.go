package workstream

import "sync"

// Window is a bounded sliding window of float64 samples. Once full, each new
// sample evicts the oldest. Safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewWindow creates a window holding at most size samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 100
	}
	return &Window{samples: make([]float64, size)}
}

// Add records a sample, evicting the oldest when the window is full.
func (w *Window) Add(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = v
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of recorded samples, at most the window size.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lenLocked()
}

func (w *Window) lenLocked() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// Stats returns the min, average and max over the current samples. All three
// are zero when the window is empty.
func (w *Window) Stats() (min, avg, max float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.lenLocked()
	if n == 0 {
		return 0, 0, 0
	}

	min = w.samples[0]
	max = w.samples[0]
	var sum float64
	for i := 0; i < n; i++ {
		v := w.samples[i]
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, sum / float64(n), max
}

// Reset discards all samples.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next = 0
	w.full = false
}
