package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresNotebookStore implements store.NotebookStore.
type PostgresNotebookStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotebookStore creates a notebook store over db.
func NewPostgresNotebookStore(db store.DBTX, logger *slog.Logger) *PostgresNotebookStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotebookStore{
		db:     db,
		logger: logger.With(slog.String("component", "notebook_store")),
	}
}

var _ store.NotebookStore = (*PostgresNotebookStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresNotebookStore) WithTx(tx *sql.Tx) store.NotebookStore {
	return &PostgresNotebookStore{db: tx, logger: s.logger}
}

// Create implements store.NotebookStore.Create
func (s *PostgresNotebookStore) Create(ctx context.Context, nb *domain.Notebook) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := nb.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notebooks (id, user_id, name, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, nb.ID, nb.UserID, nb.Name, nb.Color, nb.CreatedAt, nb.UpdatedAt)
	if err != nil {
		log.Error("failed to create notebook",
			slog.String("error", err.Error()),
			slog.String("notebook_id", nb.ID.String()),
			slog.String("user_id", nb.UserID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.NotebookStore.GetByID
func (s *PostgresNotebookStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Notebook, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var nb domain.Notebook
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM notebooks
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&nb.ID, &nb.UserID, &nb.Name, &nb.Color, &nb.CreatedAt, &nb.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotebookNotFound
		}
		log.Error("failed to get notebook",
			slog.String("error", err.Error()),
			slog.String("notebook_id", id.String()))
		return nil, MapError(err)
	}
	return &nb, nil
}

// List returns the user's notebooks, oldest first, with the number of live
// items in each.
func (s *PostgresNotebookStore) List(ctx context.Context, userID uuid.UUID) (_ []store.NotebookWithCount, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.name, n.color, n.created_at, n.updated_at,
		       COUNT(i.id) AS item_count
		FROM notebooks n
		LEFT JOIN memory_items i ON i.notebook_id = n.id AND i.deleted_at IS NULL
		WHERE n.user_id = $1
		GROUP BY n.id
		ORDER BY n.created_at ASC
	`, userID)
	if err != nil {
		log.Error("failed to list notebooks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	result := []store.NotebookWithCount{}
	for rows.Next() {
		var nb store.NotebookWithCount
		if err := rows.Scan(
			&nb.ID, &nb.UserID, &nb.Name, &nb.Color, &nb.CreatedAt, &nb.UpdatedAt, &nb.ItemCount,
		); err != nil {
			return nil, err
		}
		result = append(result, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update writes the notebook's name and color.
func (s *PostgresNotebookStore) Update(ctx context.Context, nb *domain.Notebook) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := nb.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE notebooks
		SET name = $1, color = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, nb.Name, nb.Color, nb.UpdatedAt, nb.ID, nb.UserID)
	if err != nil {
		log.Error("failed to update notebook",
			slog.String("error", err.Error()),
			slog.String("notebook_id", nb.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotebookNotFound)
}

// Delete removes a notebook and, by cascade, its items.
func (s *PostgresNotebookStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notebooks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to delete notebook",
			slog.String("error", err.Error()),
			slog.String("notebook_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNotebookNotFound)
}
