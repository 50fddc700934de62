// Package sse streams reconciliation progress to connected clients over
// server-sent events.
package sse

import "time"

// EventType identifies the kind of event.
type EventType string

// Event types.
const (
	EventHeartbeat   EventType = "heartbeat"
	EventFixProgress EventType = "fix.progress"
	EventFixState    EventType = "fix.state"
	EventScanDone    EventType = "scan.done"
)

// Event is one message sent to clients. BookID scopes delivery: clients
// subscribed to a specific book only receive that book's events.
type Event struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"book_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHeartbeatEvent creates a keep-alive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}

// NewFixProgressEvent reports one executed fix step.
func NewFixProgressEvent(bookID string, current, total int) Event {
	return Event{
		Type:   EventFixProgress,
		BookID: bookID,
		Data: map[string]int{
			"current": current,
			"total":   total,
		},
		Timestamp: time.Now(),
	}
}

// NewScanDoneEvent announces a completed scan.
func NewScanDoneEvent(bookID string, safeToCleanup bool) Event {
	return Event{
		Type:      EventScanDone,
		BookID:    bookID,
		Data:      map[string]bool{"safe_to_cleanup": safeToCleanup},
		Timestamp: time.Now(),
	}
}
