package notify

import (
	"context"
	"time"
)

// Event is a user-facing notification about pipeline activity.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// Event types emitted by the pipeline.
const (
	EventSessionProgress  = "session.progress"
	EventSessionCompleted = "session.completed"
	EventSessionFailed    = "session.failed"
	EventDriverCreated    = "driver.created"
	EventDriverUpdated    = "driver.updated"
)

// Notifier delivers events to connected clients. Delivery is best
// effort; the pipeline never blocks or fails on notification problems.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, ev Event)
	Broadcast(ctx context.Context, ev Event)
}

// NopNotifier drops every event. Used in tests and when no realtime
// surface is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyUser(context.Context, string, Event) {}
func (NopNotifier) Broadcast(context.Context, Event)          {}
