package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresReviewLogStore implements store.ReviewLogStore.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a review log store over db.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}

// Create implements store.ReviewLogStore.Create
func (s *PostgresReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_logs (id, user_id, item_id, reviewed_at, planned_at, action)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.ItemID, entry.ReviewedAt, entry.PlannedAt, string(entry.Action))
	if err != nil {
		log.Error("failed to create review log",
			slog.String("error", err.Error()),
			slog.String("item_id", entry.ItemID.String()))
		return MapError(err)
	}
	return nil
}

// ListByItem returns the item's reviews, newest first.
func (s *PostgresReviewLogStore) ListByItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
	limit int,
) (_ []*domain.ReviewLog, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, item_id, reviewed_at, planned_at, action
		FROM review_logs
		WHERE user_id = $1 AND item_id = $2
		ORDER BY reviewed_at DESC
		LIMIT $3
	`, userID, itemID, limit)
	if err != nil {
		log.Error("failed to list review logs", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	logs := []*domain.ReviewLog{}
	for rows.Next() {
		var (
			l      domain.ReviewLog
			action string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.ItemID, &l.ReviewedAt, &l.PlannedAt, &action); err != nil {
			return nil, err
		}
		l.Action = domain.ReviewAction(action)
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// Count returns the number of reviews in [from, to).
func (s *PostgresReviewLogStore) Count(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM review_logs
		WHERE user_id = $1 AND reviewed_at >= $2 AND reviewed_at < $3
	`, userID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		log.Error("failed to count reviews", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return n, nil
}

// CountByDay buckets reviews in [from, to) by calendar day in loc, keyed
// with domain.DayLayout. Days without reviews are absent.
//
// Bucketing happens here rather than in SQL so that any *time.Location,
// including time.Local, is honored.
func (s *PostgresReviewLogStore) CountByDay(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
	loc *time.Location,
) (_ map[string]int, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if loc == nil {
		loc = time.UTC
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT reviewed_at
		FROM review_logs
		WHERE user_id = $1 AND reviewed_at >= $2 AND reviewed_at < $3
	`, userID, from.UTC(), to.UTC())
	if err != nil {
		log.Error("failed to load reviews by day", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	counts := make(map[string]int)
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		counts[at.In(loc).Format(domain.DayLayout)]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
