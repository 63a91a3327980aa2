package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// NotebookWithCount is a notebook annotated with its live item count.
type NotebookWithCount struct {
	domain.Notebook
	ItemCount int `json:"item_count"`
}

// NotebookStore persists notebooks. Every lookup is scoped by owner.
type NotebookStore interface {
	Create(ctx context.Context, nb *domain.Notebook) error

	// GetByID returns ErrNotebookNotFound if no such notebook belongs to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Notebook, error)

	// List returns the user's notebooks ordered by creation time, each with
	// the count of its non-deleted items.
	List(ctx context.Context, userID uuid.UUID) ([]NotebookWithCount, error)

	Update(ctx context.Context, nb *domain.Notebook) error

	// Delete removes the notebook and its items.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	WithTx(tx *sql.Tx) NotebookStore
}
