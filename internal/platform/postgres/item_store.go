package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// defaultListLimit caps List and ListDue when the caller gives no limit.
const defaultListLimit = 100

// PostgresItemStore implements store.ItemStore.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates an item store over db.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

var _ store.ItemStore = (*PostgresItemStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{db: tx, logger: s.logger}
}

const itemColumns = `id, user_id, notebook_id, curve_id, title, content, image_paths, status,
	stage_index, next_review_at, last_review_at, created_at, updated_at, deleted_at`

func scanItem(row rowScanner) (*domain.MemoryItem, error) {
	var (
		item    domain.MemoryItem
		curveID uuid.NullUUID
		images  []byte
		status  string
		last    sql.NullTime
		deleted sql.NullTime
	)
	if err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.NotebookID,
		&curveID,
		&item.Title,
		&item.Content,
		&images,
		&status,
		&item.StageIndex,
		&item.NextReviewAt,
		&last,
		&item.CreatedAt,
		&item.UpdatedAt,
		&deleted,
	); err != nil {
		return nil, err
	}

	item.Status = domain.ItemStatus(status)
	if curveID.Valid {
		id := curveID.UUID
		item.CurveID = &id
	}
	if last.Valid {
		t := last.Time
		item.LastReviewAt = &t
	}
	if deleted.Valid {
		t := deleted.Time
		item.DeletedAt = &t
	}
	item.ImagePaths = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &item.ImagePaths); err != nil {
			return nil, fmt.Errorf("failed to decode image paths of item %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func encodeImages(paths []string) ([]byte, error) {
	if paths == nil {
		paths = []string{}
	}
	return json.Marshal(paths)
}

// Create implements store.ItemStore.Create
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.MemoryItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}
	images, err := encodeImages(item.ImagePaths)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		item.ID,
		item.UserID,
		item.NotebookID,
		nullUUID(item.CurveID),
		item.Title,
		item.Content,
		images,
		string(item.Status),
		item.StageIndex,
		item.NextReviewAt,
		nullTime(item.LastReviewAt),
		item.CreatedAt,
		item.UpdatedAt,
		nullTime(item.DeletedAt),
	)
	if err != nil {
		log.Error("failed to create item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()),
			slog.String("user_id", item.UserID.String()))
		return MapError(err)
	}

	log.Debug("item created",
		slog.String("item_id", item.ID.String()),
		slog.String("status", string(item.Status)))
	return nil
}

// GetByID returns the item, including soft-deleted ones.
func (s *PostgresItemStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	return s.getOne(ctx, `SELECT `+itemColumns+` FROM memory_items WHERE id = $1 AND user_id = $2`, userID, id)
}

// GetForUpdate is GetByID with a row lock; it must run inside a transaction.
func (s *PostgresItemStore) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	return s.getOne(ctx,
		`SELECT `+itemColumns+` FROM memory_items WHERE id = $1 AND user_id = $2 FOR UPDATE`, userID, id)
}

func (s *PostgresItemStore) getOne(ctx context.Context, query string, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item not found", slog.String("item_id", id.String()))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, MapError(err)
	}
	return item, nil
}

// Update writes every mutable column of the item.
func (s *PostgresItemStore) Update(ctx context.Context, item *domain.MemoryItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return err
	}
	images, err := encodeImages(item.ImagePaths)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_items
		SET notebook_id = $1, curve_id = $2, title = $3, content = $4, image_paths = $5,
		    status = $6, stage_index = $7, next_review_at = $8, last_review_at = $9,
		    updated_at = $10, deleted_at = $11
		WHERE id = $12 AND user_id = $13
	`,
		item.NotebookID,
		nullUUID(item.CurveID),
		item.Title,
		item.Content,
		images,
		string(item.Status),
		item.StageIndex,
		item.NextReviewAt,
		nullTime(item.LastReviewAt),
		item.UpdatedAt,
		nullTime(item.DeletedAt),
		item.ID,
		item.UserID,
	)
	if err != nil {
		log.Error("failed to update item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}

// escapeLike escapes the LIKE wildcards in q.
func escapeLike(q string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
}

// queryArgs collects positional arguments for a dynamically built query.
type queryArgs []any

func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// itemConditions turns filter into WHERE conditions, ignoring paging.
func itemConditions(userID uuid.UUID, filter store.ItemFilter, args *queryArgs) []string {
	where := []string{"user_id = " + args.add(userID)}
	if filter.Deleted {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.NotebookID != nil {
		where = append(where, "notebook_id = "+args.add(*filter.NotebookID))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := args.add("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR content ILIKE %s)", p, p))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = args.add(string(st))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	return where
}

// List filters the user's items. Query matches title or content
// case-insensitively. Results are ordered by next review time.
func (s *PostgresItemStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.ItemFilter,
) (_ []*domain.MemoryItem, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var args queryArgs
	where := itemConditions(userID, filter, &args)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT ` + itemColumns + ` FROM memory_items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY next_review_at ASC, created_at ASC LIMIT ` + args.add(limit) + ` OFFSET ` + args.add(max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)
	return collectItems(rows)
}

// ListDue returns the user's live reviewing items due at now, most overdue first.
func (s *PostgresItemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) (_ []*domain.MemoryItem, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM memory_items
		WHERE user_id = $1 AND status = 'reviewing' AND deleted_at IS NULL AND next_review_at <= $2
		ORDER BY next_review_at ASC
		LIMIT $3
	`, userID, now.UTC(), limit)
	if err != nil {
		log.Error("failed to list due items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)
	return collectItems(rows)
}

// CountDue counts the user's live reviewing items due before the given time.
// Only the notebook and query parts of filter apply.
func (s *PostgresItemStore) CountDue(
	ctx context.Context,
	userID uuid.UUID,
	filter store.ItemFilter,
	before time.Time,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var args queryArgs
	where := itemConditions(userID, store.ItemFilter{NotebookID: filter.NotebookID, Query: filter.Query}, &args)
	where = append(where, "status = 'reviewing'", "next_review_at < "+args.add(before.UTC()))

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_items WHERE `+strings.Join(where, " AND "), args...).Scan(&n)
	if err != nil {
		log.Error("failed to count due items", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return n, nil
}

func collectItems(rows *sql.Rows) ([]*domain.MemoryItem, error) {
	items := []*domain.MemoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// NextReviewAfter returns the earliest next review strictly after now among
// all users' live reviewing items, or nil when there is none.
func (s *PostgresItemStore) NextReviewAfter(ctx context.Context, now time.Time) (*time.Time, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var next sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(next_review_at)
		FROM memory_items
		WHERE status = 'reviewing' AND deleted_at IS NULL AND next_review_at > $1
	`, now.UTC()).Scan(&next)
	if err != nil {
		log.Error("failed to find next review time", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if !next.Valid {
		return nil, nil
	}
	t := next.Time.UTC()
	return &t, nil
}

// CountDueByUser counts live reviewing items due at now, per user. Users with
// nothing due are absent from the map.
func (s *PostgresItemStore) CountDueByUser(ctx context.Context, now time.Time) (_ map[uuid.UUID]int, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*)
		FROM memory_items
		WHERE status = 'reviewing' AND deleted_at IS NULL AND next_review_at <= $1
		GROUP BY user_id
	`, now.UTC())
	if err != nil {
		log.Error("failed to count due items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			userID uuid.UUID
			n      int
		)
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, err
		}
		counts[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// PurgeDeleted permanently removes items soft-deleted before cutoff.
func (s *PostgresItemStore) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_items WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff.UTC())
	if err != nil {
		log.Error("failed to purge deleted items", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Info("purged deleted items", slog.Int64("count", n))
	}
	return n, nil
}
