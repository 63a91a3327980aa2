package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemRowColumns = []string{
	"id", "user_id", "notebook_id", "curve_id", "title", "content", "image_paths", "status",
	"stage_index", "next_review_at", "last_review_at", "created_at", "updated_at", "deleted_at",
}

func TestNewPostgresItemStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresItemStore(nil, nil) })
}

func TestPostgresItemStore_Create(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	item, err := domain.NewMemoryItem(uuid.New(), uuid.New(), nil, "Capital of Peru", "Lima", []string{"a.png"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO memory_items").
		WithArgs(item.ID, item.UserID, item.NotebookID, uuid.NullUUID{}, item.Title, item.Content,
			[]byte(`["a.png"]`), "new", 0, item.NextReviewAt, sqlmock.AnyArg(), item.CreatedAt,
			item.UpdatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), item))
}

func TestPostgresItemStore_CreateRejectsInvalidItem(t *testing.T) {
	db, _ := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	err := s.Create(context.Background(), &domain.MemoryItem{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrEmptyUserID)
}

func TestPostgresItemStore_GetByID(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	userID, itemID, nbID, curveID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(itemRowColumns).AddRow(
		itemID.String(), userID.String(), nbID.String(), curveID.String(), "t", "c",
		[]byte(`["x.jpg","y.jpg"]`), "reviewing", 2, now.Add(time.Hour), now, now, now, nil,
	)
	mock.ExpectQuery("SELECT .* FROM memory_items WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(itemID, userID).
		WillReturnRows(rows)

	item, err := s.GetByID(context.Background(), userID, itemID)
	require.NoError(t, err)
	assert.Equal(t, itemID, item.ID)
	require.NotNil(t, item.CurveID)
	assert.Equal(t, curveID, *item.CurveID)
	assert.Equal(t, []string{"x.jpg", "y.jpg"}, item.ImagePaths)
	assert.Equal(t, domain.ItemStatusReviewing, item.Status)
	assert.Equal(t, 2, item.StageIndex)
	require.NotNil(t, item.LastReviewAt)
	assert.Nil(t, item.DeletedAt)
}

func TestPostgresItemStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	mock.ExpectQuery("FROM memory_items").WillReturnRows(sqlmock.NewRows(itemRowColumns))

	_, err := s.GetByID(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestPostgresItemStore_GetForUpdateLocksRow(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows(itemRowColumns))

	_, err := s.GetForUpdate(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}

func TestPostgresItemStore_UpdateNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	item, err := domain.NewMemoryItem(uuid.New(), uuid.New(), nil, "t", "", nil)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE memory_items").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Update(context.Background(), item), store.ErrItemNotFound)
}

func TestPostgresItemStore_ListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	userID, nbID := uuid.New(), uuid.New()
	mock.ExpectQuery(`deleted_at IS NULL AND notebook_id = \$2 AND \(title ILIKE \$3 OR content ILIKE \$3\) ` +
		`AND status IN \(\$4, \$5\) ORDER BY next_review_at ASC, created_at ASC LIMIT \$6 OFFSET \$7`).
		WithArgs(userID, nbID, `%50\%%`, "reviewing", "paused", 10, 0).
		WillReturnRows(sqlmock.NewRows(itemRowColumns))

	items, err := s.List(context.Background(), userID, store.ItemFilter{
		NotebookID: &nbID,
		Query:      " 50% ",
		Statuses:   []domain.ItemStatus{domain.ItemStatusReviewing, domain.ItemStatusPaused},
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPostgresItemStore_ListDeleted(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	userID := uuid.New()
	mock.ExpectQuery(`deleted_at IS NOT NULL`).
		WithArgs(userID, defaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(itemRowColumns))

	_, err := s.List(context.Background(), userID, store.ItemFilter{Deleted: true})
	require.NoError(t, err)
}

func TestPostgresItemStore_NextReviewAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("none", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresItemStore(db, quietLogger())

		mock.ExpectQuery(`SELECT MIN\(next_review_at\)`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))

		next, err := s.NextReviewAfter(context.Background(), now)
		require.NoError(t, err)
		assert.Nil(t, next)
	})

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresItemStore(db, quietLogger())

		want := now.Add(30 * time.Minute)
		mock.ExpectQuery(`status = 'reviewing' AND deleted_at IS NULL AND next_review_at > \$1`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(want))

		next, err := s.NextReviewAfter(context.Background(), now)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.True(t, want.Equal(*next))
	})

	t.Run("error", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewPostgresItemStore(db, quietLogger())

		mock.ExpectQuery(`MIN`).WillReturnError(errors.New("down"))

		_, err := s.NextReviewAfter(context.Background(), now)
		assert.Error(t, err)
	})
}

func TestPostgresItemStore_CountDueByUser(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	now := time.Now().UTC()
	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`GROUP BY user_id`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).
			AddRow(a.String(), 3).
			AddRow(b.String(), 1))

	counts, err := s.CountDueByUser(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{a: 3, b: 1}, counts)
}

func TestPostgresItemStore_PurgeDeleted(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	cutoff := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM memory_items WHERE deleted_at IS NOT NULL`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.PurgeDeleted(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}

func TestPostgresItemStore_CountDue(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresItemStore(db, quietLogger())

	userID, nbID := uuid.New(), uuid.New()
	before := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM memory_items WHERE user_id = \$1 AND deleted_at IS NULL ` +
		`AND notebook_id = \$2 AND \(title ILIKE \$3 OR content ILIKE \$3\) ` +
		`AND status = 'reviewing' AND next_review_at < \$4`).
		WithArgs(userID, nbID, `%50\%%`, before).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1205))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM memory_items`).
		WillReturnError(errors.New("connection reset"))

	n, err := s.CountDue(context.Background(), userID, store.ItemFilter{
		NotebookID: &nbID,
		Query:      "50%",
		Statuses:   []domain.ItemStatus{domain.ItemStatusPaused},
		Limit:      10,
	}, before)
	require.NoError(t, err)
	assert.Equal(t, 1205, n)

	_, err = s.CountDue(context.Background(), userID, store.ItemFilter{}, before)
	assert.Error(t, err)
}
