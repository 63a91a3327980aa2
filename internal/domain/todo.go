package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DayLayout formats the calendar days stored on daily todos.
const DayLayout = "2006-01-02"

var (
	ErrEmptyTodoID    = errors.New("todo ID cannot be empty")
	ErrEmptyTodoTitle = errors.New("todo title cannot be empty")
	ErrEmptyTagName   = errors.New("tag name cannot be empty")
)

// TodoTag labels todo tasks.
type TodoTag struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     int64     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTodoTag creates a tag.
func NewTodoTag(userID uuid.UUID, name string, color int64) (*TodoTag, error) {
	tag := &TodoTag{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}
	return tag, nil
}

// Validate checks the tag's owner and name.
func (t *TodoTag) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.Name == "" {
		return ErrEmptyTagName
	}
	return nil
}

// TodoTask is a plain or daily-repeating task. A daily task counts as
// completed only on the day recorded in LastCompletedDay.
type TodoTask struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"user_id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	DueAt            *time.Time  `json:"due_at,omitempty"`
	IsDaily          bool        `json:"is_daily"`
	IsCompleted      bool        `json:"is_completed"`
	LastCompletedDay string      `json:"last_completed_day,omitempty"`
	TagIDs           []uuid.UUID `json:"tag_ids"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewTodoTask creates an uncompleted task.
func NewTodoTask(userID uuid.UUID, title, description string, dueAt *time.Time, daily bool) (*TodoTask, error) {
	now := time.Now().UTC()
	t := &TodoTask{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		DueAt:       dueAt,
		IsDaily:     daily,
		TagIDs:      []uuid.UUID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task's required fields.
func (t *TodoTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTodoID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.Title == "" {
		return ErrEmptyTodoTitle
	}
	return nil
}

// SetCompleted marks the task done or undone on the given day.
func (t *TodoTask) SetCompleted(done bool, day string, now time.Time) {
	t.UpdatedAt = now.UTC()
	if !t.IsDaily {
		t.IsCompleted = done
		return
	}
	if done {
		t.IsCompleted = true
		t.LastCompletedDay = day
		return
	}
	t.IsCompleted = false
	if t.LastCompletedDay == day {
		t.LastCompletedDay = ""
	}
}

// CompletedOn reports whether the task counts as done on day.
func (t *TodoTask) CompletedOn(day string) bool {
	if t.IsDaily {
		return t.LastCompletedDay == day
	}
	return t.IsCompleted
}
