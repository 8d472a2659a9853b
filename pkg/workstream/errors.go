package workstream

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned by cache backends when a key is absent.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when a cache tier cannot be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrMissingEventType is returned for payloads without an eventType.
	ErrMissingEventType = errors.New("missing event type")

	// ErrUnsupportedEventType is returned for event types outside the
	// supported set.
	ErrUnsupportedEventType = errors.New("unsupported event type")

	// ErrInvalidPayload is returned for bodies that are not a JSON object.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidTimeframe is returned for malformed timeframe strings.
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	// ErrPipelineClosed is returned when ingesting into a closed pipeline.
	ErrPipelineClosed = errors.New("pipeline closed")
)

// ValidationError is a pre-queue rejection: the payload never enters the
// queue and is never retried.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// SignatureError is a pre-queue rejection for missing or mismatched
// webhook signatures.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "signature: " + e.Reason
}

// HandlerError marks a single event as failed during dispatch. It never
// halts the batch.
type HandlerError struct {
	EventID string
	Type    EventType
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s (%s): %v", e.Type, e.EventID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
