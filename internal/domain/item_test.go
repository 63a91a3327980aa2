package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryItem(t *testing.T) {
	t.Parallel()

	userID, notebookID := uuid.New(), uuid.New()
	item, err := NewMemoryItem(userID, notebookID, nil, "  Capital of France ", "Paris", nil)
	require.NoError(t, err)

	assert.Equal(t, "Capital of France", item.Title)
	assert.Equal(t, ItemStatusNew, item.Status)
	assert.Equal(t, 0, item.StageIndex)
	assert.NotNil(t, item.ImagePaths)
	assert.Nil(t, item.CurveID)
	assert.Nil(t, item.LastReviewAt)
	assert.False(t, item.IsDeleted())
}

func TestNewMemoryItem_Validation(t *testing.T) {
	t.Parallel()

	userID, notebookID := uuid.New(), uuid.New()
	tooMany := make([]string, MaxImagePaths+1)
	for i := range tooMany {
		tooMany[i] = "img.png"
	}

	tests := []struct {
		name   string
		user   uuid.UUID
		nb     uuid.UUID
		title  string
		images []string
		want   error
	}{
		{"missing user", uuid.Nil, notebookID, "t", nil, ErrEmptyUserID},
		{"missing notebook", userID, uuid.Nil, "t", nil, ErrEmptyNotebookID},
		{"blank title", userID, notebookID, "   ", nil, ErrEmptyItemTitle},
		{"too many images", userID, notebookID, "t", tooMany, ErrTooManyImages},
		{"blank image path", userID, notebookID, "t", []string{" "}, ErrEmptyImagePath},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMemoryItem(tc.user, tc.nb, nil, tc.title, "", tc.images)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMemoryItemIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &MemoryItem{Status: ItemStatusReviewing, NextReviewAt: now}
	assert.True(t, item.IsDue(now), "due exactly at next review time")
	assert.False(t, item.IsDue(now.Add(-time.Second)))

	item.Status = ItemStatusPaused
	assert.False(t, item.IsDue(now.Add(time.Hour)), "paused items are never due")

	item.Status = ItemStatusReviewing
	deleted := now
	item.DeletedAt = &deleted
	assert.False(t, item.IsDue(now.Add(time.Hour)), "deleted items are never due")
}

func TestItemStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []ItemStatus{ItemStatusNew, ItemStatusReviewing, ItemStatusCompleted, ItemStatusPaused} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ItemStatus("archived").Valid())
}
