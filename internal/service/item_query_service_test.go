package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemQueryService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memstore.New()
	svc := NewItemQueryService(mem.Items(), mem.ReviewLogs(), quietLogger()).(*itemQueryService)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	userID := uuid.New()

	nb, err := domain.NewNotebook(userID, "Words", domain.DefaultNotebookColor)
	require.NoError(t, err)
	require.NoError(t, mem.Notebooks().Create(ctx, nb))
	other, err := domain.NewNotebook(userID, "Other", domain.DefaultNotebookColor)
	require.NoError(t, err)
	require.NoError(t, mem.Notebooks().Create(ctx, other))

	add := func(nbID uuid.UUID, title, content string, status domain.ItemStatus, next time.Time) *domain.MemoryItem {
		it, err := domain.NewMemoryItem(userID, nbID, nil, title, content, nil)
		require.NoError(t, err)
		it.Status = status
		it.NextReviewAt = next
		require.NoError(t, mem.Items().Create(ctx, it))
		return it
	}
	late := add(nb.ID, "perro", "dog", domain.ItemStatusReviewing, now.Add(-2*time.Hour))
	soon := add(nb.ID, "gato", "cat", domain.ItemStatusReviewing, now.Add(time.Hour))
	pausedDue := add(other.ID, "Dog days", "summer", domain.ItemStatusPaused, now.Add(-time.Hour))

	t.Run("search matches title or content", func(t *testing.T) {
		items, err := svc.List(ctx, userID, ListItemsRequest{Query: "DOG"})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, late.ID, items[0].ID)
		assert.Equal(t, pausedDue.ID, items[1].ID)
	})

	t.Run("filter by notebook and status", func(t *testing.T) {
		items, err := svc.List(ctx, userID, ListItemsRequest{NotebookID: &nb.ID})
		require.NoError(t, err)
		assert.Len(t, items, 2)

		items, err = svc.List(ctx, userID, ListItemsRequest{Status: domain.ItemStatusPaused})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pausedDue.ID, items[0].ID)

		_, err = svc.List(ctx, userID, ListItemsRequest{Status: "bogus"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("paging", func(t *testing.T) {
		items, err := svc.List(ctx, userID, ListItemsRequest{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, pausedDue.ID, items[0].ID)
	})

	t.Run("due excludes paused and future items", func(t *testing.T) {
		items, err := svc.Due(ctx, userID, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, late.ID, items[0].ID)
	})

	t.Run("history", func(t *testing.T) {
		entry, err := domain.NewReviewLog(soon, domain.ReviewActionForgot, now)
		require.NoError(t, err)
		require.NoError(t, mem.ReviewLogs().Create(ctx, entry))

		logs, err := svc.History(ctx, userID, soon.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.ReviewActionForgot, logs[0].Action)

		_, err = svc.History(ctx, uuid.New(), soon.ID)
		assert.ErrorIs(t, err, store.ErrItemNotFound)
	})

	_, err = svc.Get(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	assert.Equal(t, defaultPageSize, pageSize(0))
	assert.Equal(t, maxPageSize, pageSize(10_000))
}
