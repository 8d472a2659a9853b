package workstream

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EventType identifies the kind of change a webhook notification describes.
type EventType string

const (
	EventWorkItemCreated   EventType = "workitem.created"
	EventWorkItemUpdated   EventType = "workitem.updated"
	EventWorkItemDeleted   EventType = "workitem.deleted"
	EventWorkItemRestored  EventType = "workitem.restored"
	EventWorkItemCommented EventType = "workitem.commented"
)

// supportedEventTypes is the set of event types the pipeline accepts.
var supportedEventTypes = map[EventType]struct{}{
	EventWorkItemCreated:   {},
	EventWorkItemUpdated:   {},
	EventWorkItemDeleted:   {},
	EventWorkItemRestored:  {},
	EventWorkItemCommented: {},
}

// Supported reports whether the pipeline knows how to handle this event type.
func (t EventType) Supported() bool {
	_, ok := supportedEventTypes[t]
	return ok
}

// Action returns the short action name ("created", "updated", ...) without
// the "workitem." prefix.
func (t EventType) Action() string {
	if i := strings.LastIndex(string(t), "."); i >= 0 {
		return string(t)[i+1:]
	}
	return string(t)
}

// WebhookPayload is the inbound webhook body as posted by the upstream
// work-tracking service.
type WebhookPayload struct {
	EventType   string         `json:"eventType"`
	Resource    *WorkItem      `json:"resource,omitempty"`
	Message     map[string]any `json:"message,omitempty"`
	CreatedDate string         `json:"createdDate,omitempty"`
}

// WorkItem is the changed resource carried in the webhook envelope. Fields
// holds the upstream field reference names (e.g. "System.Title") verbatim.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
	URL    string         `json:"url,omitempty"`
}

// Title returns the work item title, or "" when not present.
func (w *WorkItem) Title() string {
	return w.stringField("System.Title")
}

// Kind returns the work item type (Bug, Task, ...), or "" when not present.
func (w *WorkItem) Kind() string {
	return w.stringField("System.WorkItemType")
}

// State returns the workflow state, or "" when not present.
func (w *WorkItem) State() string {
	return w.stringField("System.State")
}

// IterationPath returns the iteration path, or "" when not present.
func (w *WorkItem) IterationPath() string {
	return w.stringField("System.IterationPath")
}

// AreaPath returns the area path, or "" when not present.
func (w *WorkItem) AreaPath() string {
	return w.stringField("System.AreaPath")
}

// Assignee returns a canonical identity string for the assignee. The upstream
// service serializes identities either as a bare string or as an object;
// precedence is uniqueName, then mailAddress, then displayName, then the raw
// string form.
func (w *WorkItem) Assignee() string {
	if w == nil || w.Fields == nil {
		return ""
	}
	v, ok := w.Fields["System.AssignedTo"]
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case map[string]any:
		for _, key := range []string{"uniqueName", "mailAddress", "displayName"} {
			if s, ok := id[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// ChangedFields returns the sorted field reference names present on the
// work item, used as the changed-field list for update notifications.
func (w *WorkItem) ChangedFields() []string {
	if w == nil || len(w.Fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(w.Fields))
	for name := range w.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *WorkItem) stringField(name string) string {
	if w == nil || w.Fields == nil {
		return ""
	}
	s, _ := w.Fields[name].(string)
	return s
}

// WebhookEvent is a validated, queued change notification. It lives only in
// memory until its batch is flushed.
type WebhookEvent struct {
	ID         string
	Type       EventType
	Resource   *WorkItem
	Message    map[string]any
	ReceivedAt time.Time
}

// EventID computes the diagnostic event identifier: the first 16 hex
// characters of a SHA-256 digest over (eventType, resourceID, timestamp).
// It is not a deduplication key.
func EventID(t EventType, resourceID int, ts time.Time) string {
	sum := sha256.Sum256([]byte(string(t) + "|" + strconv.Itoa(resourceID) + "|" + strconv.FormatInt(ts.UnixNano(), 10)))
	return hex.EncodeToString(sum[:8])
}

// IngestResult is the synchronous outcome of posting a webhook. Everything
// after acceptance is fire-and-forget and observable only via statistics.
type IngestResult struct {
	Success   bool   `json:"success"`
	EventType string `json:"eventType,omitempty"`
	EventID   string `json:"eventId,omitempty"`
	QueueSize int    `json:"queueSize,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ProcessResult is the normalized per-event handler summary, used for
// logging and statistics only.
type ProcessResult struct {
	WorkItemID int
	Action     string
	Title      string
	Extra      map[string]any
}

// UpdateWorkItem is the trimmed work item representation sent to subscribers.
type UpdateWorkItem struct {
	ID       int    `json:"id"`
	Title    string `json:"title,omitempty"`
	Kind     string `json:"kind,omitempty"`
	State    string `json:"state,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// UpdateMessage is the normalized envelope pushed to subscribers on every
// processed event.
type UpdateMessage struct {
	Type      string         `json:"type"`
	Action    string         `json:"action"`
	WorkItem  UpdateWorkItem `json:"workItem"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewUpdateMessage builds the subscriber envelope for a processed event.
func NewUpdateMessage(action string, item *WorkItem, metadata map[string]any) UpdateMessage {
	msg := UpdateMessage{
		Type:      "workItemUpdate",
		Action:    action,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	if item != nil {
		msg.WorkItem = UpdateWorkItem{
			ID:       item.ID,
			Title:    item.Title(),
			Kind:     item.Kind(),
			State:    item.State(),
			Assignee: item.Assignee(),
		}
	}
	return msg
}

// ParseTimeframe parses an operator timeframe of the form "<N>h", "<N>d",
// "<N>w" or "<N>m" (hours, days, weeks, months) into a duration. A month is
// treated as 30 days.
func ParseTimeframe(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	switch s[len(s)-1] {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
}
