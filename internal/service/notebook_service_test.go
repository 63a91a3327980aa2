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

func TestNotebookService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, mock := newTxDB(t)
	mem := memstore.New()
	emitter := &recordingEmitter{}
	svc := NewNotebookService(db, mem.Notebooks(), emitter, quietLogger())
	userID := uuid.New()

	nb, err := svc.Create(ctx, userID, "Biology", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotebookColor, nb.Color)

	_, err = svc.Create(ctx, userID, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	item, err := domain.NewMemoryItem(userID, nb.ID, nil, "cell", "", nil)
	require.NoError(t, err)
	item.Status = domain.ItemStatusReviewing
	require.NoError(t, mem.Items().Create(ctx, item))

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ItemCount)

	name := "Cell biology"
	color := int64(0xFF00FF00)
	expectCommit(mock)
	updated, err := svc.Update(ctx, userID, nb.ID, &name, &color)
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, color, updated.Color)
	assert.WithinDuration(t, time.Now(), updated.UpdatedAt, time.Minute)

	expectRollback(mock)
	_, err = svc.Update(ctx, uuid.New(), nb.ID, &name, nil)
	assert.ErrorIs(t, err, store.ErrNotebookNotFound)

	require.NoError(t, svc.Delete(ctx, userID, nb.ID))
	_, err = mem.Items().GetByID(ctx, userID, item.ID)
	assert.ErrorIs(t, err, store.ErrItemNotFound, "items go with their notebook")

	got := emitter.all()
	require.Len(t, got, 1)
	assert.Equal(t, ReasonNotebookDeleted, got[0].Reason)

	assert.ErrorIs(t, svc.Delete(ctx, userID, nb.ID), store.ErrNotebookNotFound)
	assert.Len(t, emitter.all(), 1)
}
