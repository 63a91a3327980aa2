package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ItemFilter narrows ItemStore.List. Zero values do not filter.
type ItemFilter struct {
	NotebookID *uuid.UUID
	// Query matches title or content, case-insensitively.
	Query    string
	Statuses []domain.ItemStatus
	// Deleted selects trashed items instead of live ones.
	Deleted bool
	Limit   int
	Offset  int
}

// ItemStore persists memory items and answers the scheduling queries.
type ItemStore interface {
	Create(ctx context.Context, item *domain.MemoryItem) error

	// GetByID returns the item, trashed or not.
	// Returns ErrItemNotFound if no such item belongs to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error)

	// GetForUpdate is GetByID with a row lock. Use inside a transaction.
	GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error)

	// Update saves every mutable field, including review state and DeletedAt.
	Update(ctx context.Context, item *domain.MemoryItem) error

	// List returns items ordered by next review time, then creation time.
	List(ctx context.Context, userID uuid.UUID, filter ItemFilter) ([]*domain.MemoryItem, error)

	// ListDue returns the user's live reviewing items due at or before now,
	// most overdue first.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.MemoryItem, error)

	// CountDue counts the user's live reviewing items due strictly before
	// before. Only filter's NotebookID and Query apply.
	CountDue(ctx context.Context, userID uuid.UUID, filter ItemFilter, before time.Time) (int, error)

	// NextReviewAfter returns the earliest next review time strictly after now
	// across all users' live reviewing items, or nil when there is none.
	NextReviewAfter(ctx context.Context, now time.Time) (*time.Time, error)

	// CountDueByUser counts live reviewing items due at or before now, per user.
	// Users with nothing due are absent from the map.
	CountDueByUser(ctx context.Context, now time.Time) (map[uuid.UUID]int, error)

	// PurgeDeleted permanently removes items trashed before cutoff.
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)

	WithTx(tx *sql.Tx) ItemStore
}
