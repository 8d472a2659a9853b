package workstream

import (
	"context"
	"errors"
	"fmt"
)

// dispatcher routes each event to its type-specific handler. Handler
// failures fail only that event; cache invalidation and broadcast failures
// are side effects, logged and never propagated.
type dispatcher struct {
	invalidator *Invalidator
	broadcaster Broadcaster
	observers   *observerRegistry
	topic       string
	logger      Logger
	metrics     Metrics
}

// Dispatch processes a single event and returns the normalized summary.
func (d *dispatcher) Dispatch(ctx context.Context, ev *WebhookEvent) (*ProcessResult, error) {
	switch ev.Type {
	case EventWorkItemCreated:
		return d.handle(ctx, ev, func(item *WorkItem) {
			d.observers.enqueue(func(o Observer) { o.WorkItemCreated(item) })
		})
	case EventWorkItemUpdated:
		changed := ev.Resource.ChangedFields()
		return d.handle(ctx, ev, func(item *WorkItem) {
			d.observers.enqueue(func(o Observer) { o.WorkItemUpdated(item, changed) })
		})
	case EventWorkItemDeleted:
		return d.handle(ctx, ev, func(item *WorkItem) {
			d.observers.enqueue(func(o Observer) { o.WorkItemDeleted(item) })
		})
	case EventWorkItemRestored:
		return d.handle(ctx, ev, func(item *WorkItem) {
			d.observers.enqueue(func(o Observer) { o.WorkItemRestored(item) })
		})
	case EventWorkItemCommented:
		msg := ev.Message
		return d.handle(ctx, ev, func(item *WorkItem) {
			d.observers.enqueue(func(o Observer) { o.WorkItemCommented(item, msg) })
		})
	default:
		// Unsupported types are rejected pre-queue; reaching here is a bug.
		return nil, &HandlerError{
			EventID: ev.ID,
			Type:    ev.Type,
			Err:     fmt.Errorf("%w: %s", ErrUnsupportedEventType, ev.Type),
		}
	}
}

// handle runs the shared handler shape: extract the resource, invalidate,
// broadcast, notify observers.
func (d *dispatcher) handle(ctx context.Context, ev *WebhookEvent, notify func(*WorkItem)) (*ProcessResult, error) {
	item := ev.Resource
	if item == nil {
		return nil, &HandlerError{
			EventID: ev.ID,
			Type:    ev.Type,
			Err:     errors.New("resource missing from event envelope"),
		}
	}

	action := ev.Type.Action()

	if err := d.invalidator.InvalidateWorkItem(ctx, item); err != nil {
		d.logger.Warn("cache invalidation failed",
			Field{"eventId", ev.ID},
			Field{"workItemId", item.ID},
			Field{"error", err.Error()},
		)
	}

	msg := NewUpdateMessage(action, item, map[string]any{"eventId": ev.ID})
	if err := d.broadcaster.Broadcast(ctx, d.topic, msg); err != nil {
		d.metrics.RecordBroadcast("pipeline", err)
		d.logger.Warn("broadcast failed",
			Field{"eventId", ev.ID},
			Field{"workItemId", item.ID},
			Field{"error", err.Error()},
		)
	} else {
		d.metrics.RecordBroadcast("pipeline", nil)
	}

	notify(item)

	return &ProcessResult{
		WorkItemID: item.ID,
		Action:     action,
		Title:      item.Title(),
		Extra: map[string]any{
			"state":    item.State(),
			"assignee": item.Assignee(),
		},
	}, nil
}
