package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// TodoStore persists todo tasks and their tags.
type TodoStore interface {
	// Create saves the task together with its TagIDs.
	Create(ctx context.Context, todo *domain.TodoTask) error

	// GetByID returns ErrTodoNotFound if no such task belongs to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TodoTask, error)

	// Update saves the task and replaces its tag set with TagIDs.
	Update(ctx context.Context, todo *domain.TodoTask) error

	Delete(ctx context.Context, userID, id uuid.UUID) error

	// List returns the user's tasks, optionally only those carrying tagID.
	List(ctx context.Context, userID uuid.UUID, tagID *uuid.UUID) ([]*domain.TodoTask, error)

	// CreateTag returns ErrTagNameExists for a duplicate name.
	CreateTag(ctx context.Context, tag *domain.TodoTag) error

	ListTags(ctx context.Context, userID uuid.UUID) ([]*domain.TodoTag, error)

	// UpdateTag saves the tag's name and color. It returns ErrTagNotFound or
	// ErrTagNameExists.
	UpdateTag(ctx context.Context, tag *domain.TodoTag) error

	DeleteTag(ctx context.Context, userID, id uuid.UUID) error

	WithTx(tx *sql.Tx) TodoStore
}
