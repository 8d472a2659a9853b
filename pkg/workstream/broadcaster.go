package workstream

import (
	"context"
	"errors"
)

// TopicWorkItemUpdates is the default topic for work-item update messages.
const TopicWorkItemUpdates = "workitems.updates"

// Broadcaster pushes update messages to subscribers. Delivery is
// fire-and-forget: no acknowledgment, no retry, no replay.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, message any) error
}

// NoopBroadcaster is a Broadcaster that does nothing (used when no live
// update transport is configured).
type NoopBroadcaster struct{}

func (n *NoopBroadcaster) Broadcast(ctx context.Context, topic string, message any) error {
	return nil
}

// MultiBroadcaster fans a message out to several broadcasters. Each target
// is attempted independently; a failure in one never blocks the others.
type MultiBroadcaster struct {
	targets []Broadcaster
}

// NewMultiBroadcaster combines the given broadcasters. Nil entries are
// skipped.
func NewMultiBroadcaster(targets ...Broadcaster) *MultiBroadcaster {
	m := &MultiBroadcaster{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

func (m *MultiBroadcaster) Broadcast(ctx context.Context, topic string, message any) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.Broadcast(ctx, topic, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
