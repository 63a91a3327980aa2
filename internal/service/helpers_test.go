package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTxDB returns a database whose only job is to begin and finish the
// transactions the services open; the stores under test live in memory.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

type recordingEmitter struct {
	mu       sync.Mutex
	payloads []events.ItemsChangedPayload
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	var p events.ItemsChangedPayload
	if err := event.UnmarshalPayload(&p); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads = append(e.payloads, p)
	return nil
}

func (e *recordingEmitter) all() []events.ItemsChangedPayload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.ItemsChangedPayload(nil), e.payloads...)
}
