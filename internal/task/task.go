package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeReviewReminder delivers a "you have items due" reminder.
const TaskTypeReviewReminder = "review_reminder"

// Task represents a unit of background work to be processed
type Task interface {
	ID() uuid.UUID
	Type() string
	// Payload is what gets persisted; a Decoder must be able to rebuild the
	// task from it.
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Record is a task as stored, before it is rebuilt into a runnable Task.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskStore persists tasks and their status transitions.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks returns tasks in the processing state. A non-zero
	// olderThan restricts the result to tasks not updated for that long.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)

	// DeleteFinishedBefore removes completed and failed tasks last updated
	// before cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	WithTx(tx *sql.Tx) TaskStore
}
