package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		event, err := NewEvent(TypeItemsChanged, ItemsChangedPayload{Reason: "add"})
		require.NoError(t, err)
		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("all handlers receive the event", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		h1, h2 := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		event, err := NewEvent(TypeItemsChanged, ItemsChangedPayload{Reason: "add"})
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, []*Event{event}, h1.events)
		assert.Equal(t, []*Event{event}, h2.events)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(discardLogger())
		failing := &recordingHandler{err: errors.New("handler error")}
		ok := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(ok)

		event, err := NewEvent(TypeReviewReminder, ReviewReminderPayload{DueCount: 1})
		require.NoError(t, err)
		err = emitter.EmitEvent(context.Background(), event)

		assert.EqualError(t, err, "handler error")
		assert.Len(t, ok.events, 1)
	})
}

func TestEventPayloadRoundTrip(t *testing.T) {
	userID := uuid.New()
	event, err := NewEvent(TypeReviewReminder, ReviewReminderPayload{UserID: userID, DueCount: 3})
	require.NoError(t, err)
	assert.Equal(t, TypeReviewReminder, event.Type)
	assert.NotEqual(t, uuid.Nil, event.ID)

	var payload ReviewReminderPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, 3, payload.DueCount)
}

func TestEmitHelper(t *testing.T) {
	assert.NoError(t, Emit(context.Background(), nil, TypeItemsChanged, nil))

	h := &recordingHandler{}
	emitter := NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(HandlerFunc(h.HandleEvent))

	require.NoError(t, Emit(context.Background(), emitter, TypeItemsChanged, ItemsChangedPayload{Reason: "delete"}))
	require.Len(t, h.events, 1)
	assert.Equal(t, TypeItemsChanged, h.events[0].Type)

	err := Emit(context.Background(), emitter, TypeItemsChanged, make(chan int))
	assert.Error(t, err, "unmarshalable payload")
}
