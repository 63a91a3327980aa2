package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// CreateTodoRequest describes a new todo.
type CreateTodoRequest struct {
	Title       string
	Description string
	DueAt       *time.Time
	IsDaily     bool
	TagIDs      []uuid.UUID
}

// UpdateTodoRequest edits a todo. Nil fields are unchanged; a non-nil
// TagIDs replaces the tag set. ClearDueAt removes the due time.
type UpdateTodoRequest struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	ClearDueAt  bool
	IsDaily     *bool
	TagIDs      *[]uuid.UUID
}

// UpdateTagRequest renames or recolors a tag. Nil fields are unchanged.
type UpdateTagRequest struct {
	Name  *string
	Color *int64
}

// TodoService manages the todo list and its tags. Daily todos count as done
// only on the local day they were last completed.
type TodoService interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateTodoRequest) (*domain.TodoTask, error)
	Update(ctx context.Context, userID, id uuid.UUID, req UpdateTodoRequest) (*domain.TodoTask, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetCompleted(ctx context.Context, userID, id uuid.UUID, done bool) (*domain.TodoTask, error)
	// List returns the user's todos, optionally only those with tagID.
	// IsCompleted reflects today for daily todos.
	List(ctx context.Context, userID uuid.UUID, tagID *uuid.UUID) ([]*domain.TodoTask, error)

	CreateTag(ctx context.Context, userID uuid.UUID, name string, color int64) (*domain.TodoTag, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]*domain.TodoTag, error)
	UpdateTag(ctx context.Context, userID, id uuid.UUID, req UpdateTagRequest) (*domain.TodoTag, error)
	DeleteTag(ctx context.Context, userID, id uuid.UUID) error
}

type todoService struct {
	db     *sql.DB
	store  store.TodoStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewTodoService creates a TodoService. A nil loc means UTC.
func NewTodoService(db *sql.DB, todos store.TodoStore, loc *time.Location, logger *slog.Logger) TodoService {
	if db == nil || todos == nil {
		panic("todo service requires a db and a todo store")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &todoService{
		db:     db,
		store:  todos,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("component", "todo_service"),
	}
}

func (s *todoService) today() string {
	return s.now().In(s.loc).Format(domain.DayLayout)
}

// present normalizes a stored todo for the caller.
func (s *todoService) present(t *domain.TodoTask, day string) *domain.TodoTask {
	t.IsCompleted = t.CompletedOn(day)
	return t
}

// checkTags rejects tag IDs the user does not own. Unknown and foreign tags
// look the same to the caller.
func checkTags(ctx context.Context, todos store.TodoStore, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	owned, err := todos.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}
	mine := make(map[uuid.UUID]bool, len(owned))
	for _, t := range owned {
		mine[t.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !mine[id] {
			return nil, store.ErrTagNotFound
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *todoService) Create(ctx context.Context, userID uuid.UUID, req CreateTodoRequest) (*domain.TodoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	todo, err := domain.NewTodoTask(userID, req.Title, req.Description, req.DueAt, req.IsDaily)
	if err != nil {
		return nil, invalid(err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		todos := s.store.WithTx(tx)
		tags, err := checkTags(ctx, todos, userID, req.TagIDs)
		if err != nil {
			return err
		}
		todo.TagIDs = tags
		return todos.Create(ctx, todo)
	})
	if err != nil {
		return nil, wrapError(log, "todo", "create", err)
	}
	return s.present(todo, s.today()), nil
}

func (s *todoService) Update(ctx context.Context, userID, id uuid.UUID, req UpdateTodoRequest) (*domain.TodoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.TodoTask
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		todos := s.store.WithTx(tx)
		todo, err := todos.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if req.Title != nil {
			todo.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			todo.Description = *req.Description
		}
		switch {
		case req.ClearDueAt:
			todo.DueAt = nil
		case req.DueAt != nil:
			due := req.DueAt.UTC()
			todo.DueAt = &due
		}
		if req.IsDaily != nil && *req.IsDaily != todo.IsDaily {
			// Switching kind starts the task over as not done.
			todo.IsDaily = *req.IsDaily
			todo.IsCompleted = false
			todo.LastCompletedDay = ""
		}
		if req.TagIDs != nil {
			tags, err := checkTags(ctx, todos, userID, *req.TagIDs)
			if err != nil {
				return err
			}
			todo.TagIDs = tags
		}
		todo.UpdatedAt = s.now().UTC()
		if err := todo.Validate(); err != nil {
			return invalid(err)
		}
		if err := todos.Update(ctx, todo); err != nil {
			return err
		}
		updated = todo
		return nil
	})
	if err != nil {
		return nil, wrapError(log, "todo", "update", err)
	}
	return s.present(updated, s.today()), nil
}

func (s *todoService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "delete",
		s.store.Delete(ctx, userID, id))
}

func (s *todoService) SetCompleted(ctx context.Context, userID, id uuid.UUID, done bool) (*domain.TodoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	day := s.today()

	var updated *domain.TodoTask
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		todos := s.store.WithTx(tx)
		todo, err := todos.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		todo.SetCompleted(done, day, s.now())
		if err := todos.Update(ctx, todo); err != nil {
			return err
		}
		updated = todo
		return nil
	})
	if err != nil {
		return nil, wrapError(log, "todo", "set_completed", err)
	}
	return s.present(updated, day), nil
}

func (s *todoService) List(ctx context.Context, userID uuid.UUID, tagID *uuid.UUID) ([]*domain.TodoTask, error) {
	todos, err := s.store.List(ctx, userID, tagID)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "list", err)
	}
	day := s.today()
	for _, t := range todos {
		s.present(t, day)
	}
	return todos, nil
}

func (s *todoService) CreateTag(ctx context.Context, userID uuid.UUID, name string, color int64) (*domain.TodoTag, error) {
	tag, err := domain.NewTodoTag(userID, name, color)
	if err != nil {
		return nil, invalid(err)
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "create_tag", err)
	}
	return tag, nil
}

func (s *todoService) ListTags(ctx context.Context, userID uuid.UUID) ([]*domain.TodoTag, error) {
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "list_tags", err)
	}
	return tags, nil
}

func (s *todoService) UpdateTag(ctx context.Context, userID, id uuid.UUID, req UpdateTagRequest) (*domain.TodoTag, error) {
	var updated *domain.TodoTag
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		todos := s.store.WithTx(tx)
		tags, err := todos.ListTags(ctx, userID)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if t.ID == id {
				updated = t
				break
			}
		}
		if updated == nil {
			return store.ErrTagNotFound
		}
		if req.Name != nil {
			updated.Name = strings.TrimSpace(*req.Name)
		}
		if req.Color != nil {
			updated.Color = *req.Color
		}
		if err := updated.Validate(); err != nil {
			return invalid(err)
		}
		return todos.UpdateTag(ctx, updated)
	})
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "update_tag", err)
	}
	return updated, nil
}

func (s *todoService) DeleteTag(ctx context.Context, userID, id uuid.UUID) error {
	return wrapError(logger.FromContextOrDefault(ctx, s.logger), "todo", "delete_tag",
		s.store.DeleteTag(ctx, userID, id))
}
