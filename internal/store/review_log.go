package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ReviewLogStore persists review history.
type ReviewLogStore interface {
	Create(ctx context.Context, log *domain.ReviewLog) error

	// ListByItem returns the item's reviews, newest first.
	ListByItem(ctx context.Context, userID, itemID uuid.UUID, limit int) ([]*domain.ReviewLog, error)

	// Count returns the number of reviews in [from, to).
	Count(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)

	// CountByDay groups reviews in [from, to) by calendar day in loc.
	// Keys are formatted with domain.DayLayout; days without reviews are absent.
	CountByDay(ctx context.Context, userID uuid.UUID, from, to time.Time, loc *time.Location) (map[string]int, error)

	WithTx(tx *sql.Tx) ReviewLogStore
}
