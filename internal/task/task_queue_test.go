package task

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue(t *testing.T) {
	q := NewTaskQueue(1, discardLogger())
	factory := NewReminderTaskFactory(&recordingNotifier{}, discardLogger())

	a, err := factory.CreateTask(events.ReviewReminderPayload{UserID: uuid.New(), DueCount: 1})
	require.NoError(t, err)
	b, err := factory.CreateTask(events.ReviewReminderPayload{UserID: uuid.New(), DueCount: 1})
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(a))
	assert.Equal(t, 1, q.Len())
	assert.ErrorIs(t, q.Enqueue(b), ErrQueueFull)

	got := <-q.GetChannel()
	assert.Equal(t, a.ID(), got.ID())

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Enqueue(b), ErrQueueClosed)
}

func TestNewTaskQueue_MinimumSize(t *testing.T) {
	q := NewTaskQueue(0, discardLogger())
	assert.Equal(t, 1, cap(q.tasks))
}
