package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresTodoStore implements store.TodoStore. Tag assignments live in
// todo_task_tags and are replaced wholesale on Create and Update, so those
// calls should run inside a transaction.
type PostgresTodoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTodoStore creates a todo store over db.
func NewPostgresTodoStore(db store.DBTX, logger *slog.Logger) *PostgresTodoStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTodoStore{
		db:     db,
		logger: logger.With(slog.String("component", "todo_store")),
	}
}

var _ store.TodoStore = (*PostgresTodoStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresTodoStore) WithTx(tx *sql.Tx) store.TodoStore {
	return &PostgresTodoStore{db: tx, logger: s.logger}
}

const todoColumns = `id, user_id, title, description, due_at, is_daily, is_completed,
	last_completed_day, created_at, updated_at`

func scanTodo(row rowScanner) (*domain.TodoTask, error) {
	var (
		t   domain.TodoTask
		due sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &due, &t.IsDaily, &t.IsCompleted,
		&t.LastCompletedDay, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		t.DueAt = &d
	}
	t.TagIDs = []uuid.UUID{}
	return &t, nil
}

// Create implements store.TodoStore.Create
func (s *PostgresTodoStore) Create(ctx context.Context, todo *domain.TodoTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todo_tasks (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, todo.ID, todo.UserID, todo.Title, todo.Description, nullTime(todo.DueAt), todo.IsDaily,
		todo.IsCompleted, todo.LastCompletedDay, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		log.Error("failed to create todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return MapError(err)
	}
	return s.insertTags(ctx, todo.ID, todo.TagIDs)
}

func (s *PostgresTodoStore) insertTags(ctx context.Context, todoID uuid.UUID, tagIDs []uuid.UUID) error {
	for _, tagID := range tagIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO todo_task_tags (todo_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, todoID, tagID); err != nil {
			if IsForeignKeyViolation(err) {
				return store.ErrTagNotFound
			}
			return MapError(err)
		}
	}
	return nil
}

// GetByID implements store.TodoStore.GetByID
func (s *PostgresTodoStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.TodoTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	todo, err := scanTodo(s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todo_tasks WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTodoNotFound
		}
		log.Error("failed to get todo", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	tags, err := s.tagsFor(ctx, []uuid.UUID{todo.ID})
	if err != nil {
		return nil, err
	}
	if ids, ok := tags[todo.ID]; ok {
		todo.TagIDs = ids
	}
	return todo, nil
}

// Update writes the todo and replaces its tag set.
func (s *PostgresTodoStore) Update(ctx context.Context, todo *domain.TodoTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE todo_tasks
		SET title = $1, description = $2, due_at = $3, is_daily = $4, is_completed = $5,
		    last_completed_day = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
	`, todo.Title, todo.Description, nullTime(todo.DueAt), todo.IsDaily, todo.IsCompleted,
		todo.LastCompletedDay, todo.UpdatedAt, todo.ID, todo.UserID)
	if err != nil {
		log.Error("failed to update todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTodoNotFound); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM todo_task_tags WHERE todo_id = $1`, todo.ID); err != nil {
		return MapError(err)
	}
	return s.insertTags(ctx, todo.ID, todo.TagIDs)
}

// Delete implements store.TodoStore.Delete
func (s *PostgresTodoStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM todo_tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to delete todo", slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTodoNotFound)
}

// List returns the user's todos, optionally only those carrying tagID.
func (s *PostgresTodoStore) List(
	ctx context.Context,
	userID uuid.UUID,
	tagID *uuid.UUID,
) (_ []*domain.TodoTask, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + todoColumns + ` FROM todo_tasks WHERE user_id = $1`
	args := []any{userID}
	if tagID != nil {
		query += ` AND id IN (SELECT todo_id FROM todo_task_tags WHERE tag_id = $2)`
		args = append(args, *tagID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list todos", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	todos := []*domain.TodoTask{}
	ids := []uuid.UUID{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return todos, nil
	}

	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range todos {
		if tagIDs, ok := tags[t.ID]; ok {
			t.TagIDs = tagIDs
		}
	}
	return todos, nil
}

func (s *PostgresTodoStore) tagsFor(ctx context.Context, todoIDs []uuid.UUID) (_ map[uuid.UUID][]uuid.UUID, err error) {
	placeholders := make([]string, len(todoIDs))
	args := make([]any, len(todoIDs))
	for i, id := range todoIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT todo_id, tag_id
		FROM todo_task_tags
		WHERE todo_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY tag_id
	`, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	result := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var todoID, tagID uuid.UUID
		if err := rows.Scan(&todoID, &tagID); err != nil {
			return nil, err
		}
		result[todoID] = append(result[todoID], tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateTag inserts a tag; a duplicate name yields store.ErrTagNameExists.
func (s *PostgresTodoStore) CreateTag(ctx context.Context, tag *domain.TodoTag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todo_tags (id, user_id, name, color, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tag.ID, tag.UserID, tag.Name, tag.Color, tag.CreatedAt)
	if err != nil {
		log.Warn("failed to create tag", slog.String("error", err.Error()))
		return MapUniqueViolation(err, store.ErrTagNameExists)
	}
	return nil
}

// ListTags returns the user's tags by name.
func (s *PostgresTodoStore) ListTags(ctx context.Context, userID uuid.UUID) (_ []*domain.TodoTag, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, created_at
		FROM todo_tags
		WHERE user_id = $1
		ORDER BY LOWER(name)
	`, userID)
	if err != nil {
		log.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	tags := []*domain.TodoTag{}
	for rows.Next() {
		var t domain.TodoTag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

// UpdateTag renames or recolors a tag.
func (s *PostgresTodoStore) UpdateTag(ctx context.Context, tag *domain.TodoTag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE todo_tags
		SET name = $1, color = $2
		WHERE id = $3 AND user_id = $4
	`, tag.Name, tag.Color, tag.ID, tag.UserID)
	if err != nil {
		log.Warn("failed to update tag",
			slog.String("tag_id", tag.ID.String()),
			slog.String("error", err.Error()))
		return MapUniqueViolation(err, store.ErrTagNameExists)
	}
	return CheckRowsAffected(result, store.ErrTagNotFound)
}

// DeleteTag removes a tag and its assignments.
func (s *PostgresTodoStore) DeleteTag(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM todo_tags WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to delete tag", slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTagNotFound)
}
