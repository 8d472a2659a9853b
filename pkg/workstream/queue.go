package workstream

import (
	"sync"
	"time"
)

// batcher owns the FIFO event queue and the debounce timer. The first
// enqueue after an idle period arms the timer; arming is idempotent so at
// most one timer is ever pending. When the timer fires, up to batchSize
// events are drained and handed to process; if a backlog remains afterwards,
// exactly one further flush is scheduled. Across batches ordering is strict:
// the next timer is not armed until the previous batch has fully settled.
type batcher struct {
	mu       sync.Mutex
	events   []*WebhookEvent
	timer    *time.Timer
	flushing bool
	closed   bool

	batchSize int
	debounce  time.Duration
	process   func(batch []*WebhookEvent)

	inflight sync.WaitGroup
}

func newBatcher(batchSize int, debounce time.Duration, process func([]*WebhookEvent)) *batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &batcher{
		batchSize: batchSize,
		debounce:  debounce,
		process:   process,
	}
}

// enqueue appends an event and arms the debounce timer when neither a timer
// nor a flush is pending. Returns the queue depth after the append.
func (b *batcher) enqueue(ev *WebhookEvent) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrPipelineClosed
	}

	b.events = append(b.events, ev)
	b.scheduleLocked()
	return len(b.events), nil
}

// scheduleLocked arms the timer if no flush cycle is in progress. Callers
// must hold b.mu.
func (b *batcher) scheduleLocked() {
	if b.timer != nil || b.flushing || b.closed || len(b.events) == 0 {
		return
	}
	b.inflight.Add(1)
	b.timer = time.AfterFunc(b.debounce, b.flush)
}

// flush drains one batch, runs process outside the lock, then reschedules
// when a backlog remains.
func (b *batcher) flush() {
	defer b.inflight.Done()

	b.mu.Lock()
	b.timer = nil
	if b.closed || len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	n := b.batchSize
	if n > len(b.events) {
		n = len(b.events)
	}
	batch := b.events[:n:n]
	b.events = b.events[n:]
	b.flushing = true
	b.mu.Unlock()

	b.process(batch)

	b.mu.Lock()
	b.flushing = false
	b.scheduleLocked()
	b.mu.Unlock()
}

// depth returns the current queue length.
func (b *batcher) depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// clear cancels any pending timer and discards queued events, returning how
// many were dropped. Events already handed to process are unaffected.
func (b *batcher) clear() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil && b.timer.Stop() {
		b.timer = nil
		b.inflight.Done()
	}
	n := len(b.events)
	b.events = nil
	return n
}

// closeAndDrain stops accepting events and waits for any in-flight flush
// cycle to settle. Queued but not-yet-dispatched events are discarded.
func (b *batcher) closeAndDrain() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil && b.timer.Stop() {
		b.timer = nil
		b.inflight.Done()
	}
	b.events = nil
	b.mu.Unlock()

	b.inflight.Wait()
}
