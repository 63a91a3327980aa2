package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/notify"
)

// ReminderTask delivers one review reminder through a notifier.
type ReminderTask struct {
	id       uuid.UUID
	payload  events.ReviewReminderPayload
	raw      []byte
	status   TaskStatus
	notifier notify.Notifier
	logger   *slog.Logger
}

var _ Task = (*ReminderTask)(nil)

func (t *ReminderTask) ID() uuid.UUID      { return t.id }
func (t *ReminderTask) Type() string       { return TaskTypeReviewReminder }
func (t *ReminderTask) Payload() []byte    { return t.raw }
func (t *ReminderTask) Status() TaskStatus { return t.status }

// Reminder returns the payload this task delivers.
func (t *ReminderTask) Reminder() events.ReviewReminderPayload { return t.payload }

// Execute hands the reminder to the notifier.
func (t *ReminderTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	err := t.notifier.Notify(ctx, notify.Reminder{
		UserID:   t.payload.UserID,
		DueCount: t.payload.DueCount,
		DueAt:    t.payload.DueAt,
	})
	if err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("deliver reminder for user %s: %w", t.payload.UserID, err)
	}
	t.status = TaskStatusCompleted
	t.logger.Debug("reminder task finished",
		"task_id", t.id,
		"user_id", t.payload.UserID,
		"due_count", t.payload.DueCount)
	return nil
}

// ReminderTaskFactory builds reminder tasks bound to a notifier.
type ReminderTaskFactory struct {
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewReminderTaskFactory creates a factory.
func NewReminderTaskFactory(notifier notify.Notifier, logger *slog.Logger) *ReminderTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderTaskFactory{
		notifier: notifier,
		logger:   logger.With("component", "reminder_task_factory"),
	}
}

// CreateTask builds a new pending reminder task.
func (f *ReminderTaskFactory) CreateTask(payload events.ReviewReminderPayload) (*ReminderTask, error) {
	if payload.UserID == uuid.Nil {
		return nil, fmt.Errorf("reminder payload: user ID cannot be empty")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode reminder payload: %w", err)
	}
	return &ReminderTask{
		id:       uuid.New(),
		payload:  payload,
		raw:      raw,
		status:   TaskStatusPending,
		notifier: f.notifier,
		logger:   f.logger,
	}, nil
}

// Decode rebuilds a stored reminder task. Register it with a Registry under
// TaskTypeReviewReminder.
func (f *ReminderTaskFactory) Decode(rec Record) (Task, error) {
	var payload events.ReviewReminderPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode reminder payload: %w", err)
	}
	return &ReminderTask{
		id:       rec.ID,
		payload:  payload,
		raw:      rec.Payload,
		status:   rec.Status,
		notifier: f.notifier,
		logger:   f.logger,
	}, nil
}
