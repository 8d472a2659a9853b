// Package workstream implements the webhook processing core: signature
// validation, debounced event batching, per-type dispatch, precise cache
// invalidation, live update broadcasting, and rolling statistics with
// threshold alerts.
package workstream

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Defaults for the queue and batcher.
const (
	DefaultBatchSize = 10
	DefaultDebounce  = 100 * time.Millisecond
)

// Config holds pipeline configuration. Zero values fall back to defaults in
// New.
type Config struct {
	// BatchSize is the maximum number of events drained per flush.
	BatchSize int

	// Debounce is the delay between the first enqueue and the flush.
	Debounce time.Duration

	// Secret is the shared webhook secret for signature validation.
	Secret string

	// ValidateSignature enables signature checking. When false every
	// payload is accepted.
	ValidateSignature bool

	// Topic is the broadcast topic for update messages.
	// Default: TopicWorkItemUpdates.
	Topic string

	// Thresholds configures the alert monitor; zero fields use defaults.
	Thresholds AlertThresholds

	// Logger receives structured pipeline logs. Default: NoopLogger.
	Logger Logger

	// Metrics receives operational metrics. Default: NoopMetrics.
	Metrics Metrics
}

// Pipeline is one webhook processing instance. Construct it with its cache
// and broadcaster injected so independent instances can coexist.
type Pipeline struct {
	conf      Config
	validator *SignatureValidator
	batcher   *batcher
	disp      *dispatcher
	monitor   *Monitor
	observers *observerRegistry

	mu     sync.Mutex
	closed bool
}

// New creates a pipeline. cache may be nil (invalidation becomes a no-op);
// broadcaster may be nil (updates are not pushed anywhere).
func New(cache Cache, broadcaster Broadcaster, conf Config) *Pipeline {
	if conf.Logger == nil {
		conf.Logger = &NoopLogger{}
	}
	if conf.Metrics == nil {
		conf.Metrics = &NoopMetrics{}
	}
	if conf.Topic == "" {
		conf.Topic = TopicWorkItemUpdates
	}
	if broadcaster == nil {
		broadcaster = &NoopBroadcaster{}
	}

	p := &Pipeline{
		conf:      conf,
		validator: NewSignatureValidator(conf.Secret, conf.ValidateSignature, conf.Logger),
		monitor:   NewMonitor(conf.Thresholds, conf.Logger, conf.Metrics),
		observers: newObserverRegistry(conf.Logger),
	}
	p.disp = &dispatcher{
		invalidator: NewInvalidator(cache, conf.Logger),
		broadcaster: broadcaster,
		observers:   p.observers,
		topic:       conf.Topic,
		logger:      conf.Logger,
		metrics:     conf.Metrics,
	}
	p.batcher = newBatcher(conf.BatchSize, conf.Debounce, p.processBatch)
	return p
}

// RegisterObserver adds an in-process observer for work-item notifications.
func (p *Pipeline) RegisterObserver(obs Observer) {
	p.observers.register(obs)
}

// Ingest validates and enqueues one webhook delivery. The returned result
// is the only thing the HTTP caller ever observes synchronously; processing
// happens after the debounce timer fires.
func (p *Pipeline) Ingest(ctx context.Context, body []byte, signature string) IngestResult {
	if err := p.validator.Validate(body, signature); err != nil {
		p.monitor.RecordInvalidSignature()
		p.conf.Logger.Warn("webhook rejected", Field{"error", err.Error()})
		return IngestResult{Success: false, Error: err.Error()}
	}

	payload, err := parsePayload(body)
	if err != nil {
		p.conf.Logger.Warn("webhook rejected", Field{"error", err.Error()})
		return IngestResult{Success: false, Error: err.Error()}
	}

	eventType := EventType(payload.EventType)
	if payload.EventType == "" {
		return IngestResult{Success: false, Error: ErrMissingEventType.Error()}
	}
	if !eventType.Supported() {
		p.conf.Metrics.RecordEvent(payload.EventType, "rejected")
		p.conf.Logger.Warn("unsupported event type", Field{"eventType", payload.EventType})
		return IngestResult{
			Success:   false,
			EventType: payload.EventType,
			Error:     ErrUnsupportedEventType.Error(),
		}
	}

	now := time.Now().UTC()
	resourceID := 0
	if payload.Resource != nil {
		resourceID = payload.Resource.ID
	}
	ev := &WebhookEvent{
		ID:         EventID(eventType, resourceID, now),
		Type:       eventType,
		Resource:   payload.Resource,
		Message:    payload.Message,
		ReceivedAt: now,
	}

	depth, err := p.batcher.enqueue(ev)
	if err != nil {
		return IngestResult{Success: false, EventType: payload.EventType, Error: err.Error()}
	}
	p.monitor.RecordReceived(eventType)

	p.conf.Logger.Debug("webhook queued",
		Field{"eventId", ev.ID},
		Field{"eventType", string(eventType)},
		Field{"queueSize", depth},
	)

	return IngestResult{
		Success:   true,
		EventType: payload.EventType,
		EventID:   ev.ID,
		QueueSize: depth,
	}
}

// parsePayload enforces the pre-queue shape checks: valid JSON, non-null
// object.
func parsePayload(body []byte) (*WebhookPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ValidationError{Reason: "payload must be a JSON object", Err: ErrInvalidPayload}
	}
	var payload WebhookPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON payload", Err: err}
	}
	return &payload, nil
}

// processBatch runs all handlers for one flushed batch concurrently and
// waits for every one to settle. Individual failures are recorded and never
// halt the batch.
func (p *Pipeline) processBatch(batch []*WebhookEvent) {
	start := time.Now()
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, ev := range batch {
		wg.Add(1)
		go func(ev *WebhookEvent) {
			defer wg.Done()
			p.processEvent(ctx, ev)
		}(ev)
	}
	wg.Wait()

	p.conf.Metrics.RecordBatchFlush(len(batch), time.Since(start))
	p.conf.Logger.Debug("batch flushed",
		Field{"size", len(batch)},
		Field{"durationMs", time.Since(start).Milliseconds()},
	)
}

func (p *Pipeline) processEvent(ctx context.Context, ev *WebhookEvent) {
	start := time.Now()
	res, err := p.disp.Dispatch(ctx, ev)
	if err != nil {
		p.monitor.RecordFailed(ev.Type)
		p.conf.Logger.Error("event processing failed",
			Field{"eventId", ev.ID},
			Field{"eventType", string(ev.Type)},
			Field{"error", err.Error()},
		)
		return
	}
	p.monitor.RecordProcessed(ev.Type, time.Since(start))
	p.conf.Logger.Info("event processed",
		Field{"eventId", ev.ID},
		Field{"workItemId", res.WorkItemID},
		Field{"action", res.Action},
		Field{"title", res.Title},
	)
}

// Statistics returns the current rolling statistics snapshot.
func (p *Pipeline) Statistics() Statistics {
	return p.monitor.Snapshot(p.batcher.depth())
}

// DetailedMetrics returns the operator metrics view for a timeframe of the
// form "<N>h", "<N>d", "<N>w" or "<N>m".
func (p *Pipeline) DetailedMetrics(timeframe string) (DetailedMetrics, error) {
	return p.monitor.DetailedMetrics(timeframe, p.batcher.depth())
}

// AlertStatus evaluates the thresholds and returns active alerts, history
// and the current configuration.
func (p *Pipeline) AlertStatus() AlertStatus {
	active := p.monitor.Evaluate(p.batcher.depth())
	return AlertStatus{
		Active:     active,
		History:    p.monitor.History(),
		Thresholds: p.monitor.Thresholds(),
	}
}

// ConfigureAlerts merges a partial threshold update and returns the
// resulting configuration.
func (p *Pipeline) ConfigureAlerts(patch AlertThresholdPatch) AlertThresholds {
	return p.monitor.Configure(patch)
}

// ClearQueue cancels any pending flush and discards queued events,
// returning how many were dropped. This is the only operation that drops
// events.
func (p *Pipeline) ClearQueue() int {
	n := p.batcher.clear()
	if n > 0 {
		p.conf.Logger.Info("queue cleared", Field{"dropped", n})
	}
	return n
}

// ResetStatistics zeroes the rolling counters.
func (p *Pipeline) ResetStatistics() {
	p.monitor.Reset()
	p.conf.Logger.Info("statistics reset")
}

// QueueDepth returns the number of queued, not-yet-dispatched events.
func (p *Pipeline) QueueDepth() int {
	return p.batcher.depth()
}

// Close stops accepting events, waits for any in-flight batch to settle and
// shuts down the observer consumer. Queued events are discarded.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.batcher.closeAndDrain()
	p.observers.close()
	return nil
}
