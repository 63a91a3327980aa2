package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	id uuid.UUID
}

func (s stubTask) ID() uuid.UUID { return s.id }
func (s stubTask) Type() string { return task.TaskTypeReviewReminder }
func (s stubTask) Payload() []byte { return []byte(`{"due_count":2}`) }
func (s stubTask) Status() task.TaskStatus { return task.TaskStatusPending }
func (s stubTask) Execute(ctx context.Context) error { return nil }

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, quietLogger())

	id := uuid.New()
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(id, task.TaskTypeReviewReminder, []byte(`{"due_count":2}`), "pending",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveTask(context.Background(), stubTask{id: id}))
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, quietLogger())

	id := uuid.New()
	mock.ExpectExec("UPDATE tasks").
		WithArgs("failed", "boom", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Unknown IDs are a no-op.
	mock.ExpectExec("UPDATE tasks").
		WithArgs("completed", nil, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "boom"))
	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""))
}

func TestPostgresTaskStore_GetProcessingTasksOlderThan(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, quietLogger())

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`WHERE status = \$1\s+AND updated_at < \$2`).
		WithArgs("processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}).
			AddRow(id.String(), task.TaskTypeReviewReminder, []byte(`{}`), "processing", nil, now, now))

	records, err := s.GetProcessingTasks(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, task.TaskStatusProcessing, records[0].Status)
	assert.Empty(t, records[0].ErrorMessage)
}

func TestPostgresTaskStore_DeleteFinishedBefore(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, quietLogger())

	cutoff := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM tasks\s+WHERE status IN \('completed', 'failed'\)`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteFinishedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
