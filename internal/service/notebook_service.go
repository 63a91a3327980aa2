package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// NotebookService manages the folders items are filed in.
type NotebookService interface {
	// Create adds a notebook. A nil color uses domain.DefaultNotebookColor.
	Create(ctx context.Context, userID uuid.UUID, name string, color *int64) (*domain.Notebook, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Notebook, error)
	// List returns the user's notebooks with their live item counts.
	List(ctx context.Context, userID uuid.UUID) ([]store.NotebookWithCount, error)
	// Update renames and/or recolors a notebook. Nil fields are unchanged.
	Update(ctx context.Context, userID, id uuid.UUID, name *string, color *int64) (*domain.Notebook, error)
	// Delete removes the notebook together with its items.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type notebookService struct {
	db      *sql.DB
	store   store.NotebookStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewNotebookService creates a NotebookService.
func NewNotebookService(
	db *sql.DB,
	notebooks store.NotebookStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) NotebookService {
	if db == nil || notebooks == nil {
		panic("notebook service requires a db and a notebook store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notebookService{
		db:      db,
		store:   notebooks,
		emitter: emitter,
		logger:  logger.With("component", "notebook_service"),
	}
}

func (s *notebookService) Create(ctx context.Context, userID uuid.UUID, name string, color *int64) (*domain.Notebook, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	c := domain.DefaultNotebookColor
	if color != nil {
		c = *color
	}
	nb, err := domain.NewNotebook(userID, name, c)
	if err != nil {
		return nil, invalid(err)
	}
	if err := s.store.Create(ctx, nb); err != nil {
		return nil, wrapError(log, "notebook", "create", err)
	}
	log.Debug("notebook created", "user_id", userID, "notebook_id", nb.ID)
	return nb, nil
}

func (s *notebookService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Notebook, error) {
	nb, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "notebook", "get", err)
	}
	return nb, nil
}

func (s *notebookService) List(ctx context.Context, userID uuid.UUID) ([]store.NotebookWithCount, error) {
	out, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "notebook", "list", err)
	}
	return out, nil
}

func (s *notebookService) Update(
	ctx context.Context,
	userID, id uuid.UUID,
	name *string,
	color *int64,
) (*domain.Notebook, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Notebook
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		notebooks := s.store.WithTx(tx)
		nb, err := notebooks.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if name != nil {
			nb.Name = strings.TrimSpace(*name)
		}
		if color != nil {
			nb.Color = *color
		}
		nb.UpdatedAt = time.Now().UTC()
		if err := nb.Validate(); err != nil {
			return invalid(err)
		}
		if err := notebooks.Update(ctx, nb); err != nil {
			return err
		}
		updated = nb
		return nil
	})
	if err != nil {
		return nil, wrapError(log, "notebook", "update", err)
	}
	return updated, nil
}

func (s *notebookService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.store.Delete(ctx, userID, id); err != nil {
		return wrapError(log, "notebook", "delete", err)
	}
	log.Info("notebook deleted", "user_id", userID, "notebook_id", id)
	emitBulkChange(ctx, log, s.emitter, userID, ReasonNotebookDeleted)
	return nil
}
