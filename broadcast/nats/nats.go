// Package nats provides a NATS-backed broadcaster for fanning update
// messages out to other processes. Delivery matches NATS core semantics:
// at-most-once, no replay.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Broadcaster publishes update messages to NATS subjects. It implements
// workstream.Broadcaster.
type Broadcaster struct {
	conn *nats.Conn
}

// New connects to NATS with automatic reconnection. Extra nats.Option
// values (e.g. disconnect/reconnect handlers) can be appended.
func New(url string, opts ...nats.Option) (*Broadcaster, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Broadcaster{conn: nc}, nil
}

// Broadcast JSON-encodes the message and publishes it to the topic as a
// NATS subject.
func (b *Broadcaster) Broadcast(ctx context.Context, topic string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return b.conn.Publish(topic, data)
}

// Flush waits for buffered publishes to reach the server. Intended for
// tests and shutdown paths.
func (b *Broadcaster) Flush() error {
	return b.conn.Flush()
}

// Close shuts down the NATS connection.
func (b *Broadcaster) Close() error {
	b.conn.Close()
	return nil
}
