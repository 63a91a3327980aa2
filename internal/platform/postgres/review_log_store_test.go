package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReviewLogStore_Create(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewLogStore(db, quietLogger())

	item, err := domain.NewMemoryItem(uuid.New(), uuid.New(), nil, "t", "", nil)
	require.NoError(t, err)
	entry, err := domain.NewReviewLog(item, domain.ReviewActionForgot, time.Now())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO review_logs").
		WithArgs(entry.ID, entry.UserID, entry.ItemID, entry.ReviewedAt, entry.PlannedAt, "forgot").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), entry))
}

func TestPostgresReviewLogStore_Count(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewLogStore(db, quietLogger())

	userID := uuid.New()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM review_logs`).
		WithArgs(userID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := s.Count(context.Background(), userID, from, to)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestPostgresReviewLogStore_CountByDayUsesLocation(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewLogStore(db, quietLogger())

	loc := time.FixedZone("UTC+9", 9*60*60)
	userID := uuid.New()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 2)

	mock.ExpectQuery(`SELECT reviewed_at`).
		WithArgs(userID, from.UTC(), to.UTC()).
		WillReturnRows(sqlmock.NewRows([]string{"reviewed_at"}).
			// 2024-05-01 08:00 local
			AddRow(time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)).
			// 2024-05-02 02:00 local
			AddRow(time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)).
			AddRow(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)))

	counts, err := s.CountByDay(context.Background(), userID, from, to, loc)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-05-01": 1, "2024-05-02": 2}, counts)
}

func TestPostgresReviewLogStore_ListByItem(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewLogStore(db, quietLogger())

	userID, itemID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`ORDER BY reviewed_at DESC`).
		WithArgs(userID, itemID, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "item_id", "reviewed_at", "planned_at", "action"}).
			AddRow(uuid.NewString(), userID.String(), itemID.String(), now, now.Add(-time.Minute), "remembered"))

	logs, err := s.ListByItem(context.Background(), userID, itemID, 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ReviewActionRemembered, logs[0].Action)
	assert.Equal(t, time.Minute, logs[0].Lateness())
}
