package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeItemsChanged is emitted after any mutation that can move the
	// nearest review time: add, review, pause, resume, postpone, delete,
	// restore, curve edits.
	TypeItemsChanged = "items_changed"

	// TypeReviewReminder asks for a user to be told that items are due.
	TypeReviewReminder = "review_reminder"
)

// Event is a typed message with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ItemsChangedPayload identifies what changed. Handlers must not rely on it
// being complete; it is informational.
type ItemsChangedPayload struct {
	UserID uuid.UUID  `json:"user_id"`
	ItemID *uuid.UUID `json:"item_id,omitempty"`
	Reason string     `json:"reason"`
}

// ReviewReminderPayload says how many items a user has due.
type ReviewReminderPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	DueCount int       `json:"due_count"`
	DueAt    time.Time `json:"due_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of eventType carrying payload as JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler consumes events.
type EventHandler interface {
	// HandleEvent processes event. Handlers ignore types they do not know.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Emit builds and emits an event in one step.
func Emit(ctx context.Context, emitter EventEmitter, eventType string, payload any) error {
	if emitter == nil {
		return nil
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return emitter.EmitEvent(ctx, event)
}
