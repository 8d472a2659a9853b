package workstream

import "sync"

// Observer receives in-process notifications about processed work-item
// changes. Implementations must not block; heavy work should be handed off.
type Observer interface {
	WorkItemCreated(item *WorkItem)
	WorkItemUpdated(item *WorkItem, changedFields []string)
	WorkItemDeleted(item *WorkItem)
	WorkItemRestored(item *WorkItem)
	WorkItemCommented(item *WorkItem, message map[string]any)
}

// NoopObserver implements Observer with empty methods. Embed it to observe
// only a subset of notifications.
type NoopObserver struct{}

func (NoopObserver) WorkItemCreated(*WorkItem)                 {}
func (NoopObserver) WorkItemUpdated(*WorkItem, []string)       {}
func (NoopObserver) WorkItemDeleted(*WorkItem)                 {}
func (NoopObserver) WorkItemRestored(*WorkItem)                {}
func (NoopObserver) WorkItemCommented(*WorkItem, map[string]any) {}

// observerRegistry delivers notifications to registered observers through a
// bounded channel drained by a single consumer goroutine, so observer code
// never runs on the dispatch path.
type observerRegistry struct {
	mu        sync.RWMutex
	observers []Observer

	notify chan func(Observer)
	done   chan struct{}
	wg     sync.WaitGroup
	logger Logger
}

const observerBufferSize = 256

func newObserverRegistry(logger Logger) *observerRegistry {
	r := &observerRegistry{
		notify: make(chan func(Observer), observerBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *observerRegistry) run() {
	defer r.wg.Done()
	for {
		select {
		case fn := <-r.notify:
			r.deliver(fn)
		case <-r.done:
			// Drain remaining notifications before exiting.
			for {
				select {
				case fn := <-r.notify:
					r.deliver(fn)
				default:
					return
				}
			}
		}
	}
}

func (r *observerRegistry) deliver(fn func(Observer)) {
	r.mu.RLock()
	targets := make([]Observer, len(r.observers))
	copy(targets, r.observers)
	r.mu.RUnlock()

	for _, obs := range targets {
		fn(obs)
	}
}

func (r *observerRegistry) register(obs Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
}

// enqueue hands a notification to the consumer goroutine. Notifications are
// dropped with a warning when the buffer is full; observers are advisory and
// must never stall dispatch.
func (r *observerRegistry) enqueue(fn func(Observer)) {
	select {
	case r.notify <- fn:
	default:
		r.logger.Warn("observer notification dropped, buffer full")
	}
}

func (r *observerRegistry) close() {
	close(r.done)
	r.wg.Wait()
}
