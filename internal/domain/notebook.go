package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultNotebookColor is the ARGB color given to notebooks created without one.
const DefaultNotebookColor int64 = 0xFF6200EE

// DefaultNotebookName names the notebook seeded for every new user.
const DefaultNotebookName = "Default"

var (
	ErrEmptyNotebookID   = errors.New("notebook ID cannot be empty")
	ErrEmptyNotebookName = errors.New("notebook name cannot be empty")
	ErrNotebookNameLong  = errors.New("notebook name must be at most 100 characters")
)

// Notebook groups memory items.
type Notebook struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     int64     `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewNotebook creates a notebook. A zero color selects DefaultNotebookColor.
func NewNotebook(userID uuid.UUID, name string, color int64) (*Notebook, error) {
	if color == 0 {
		color = DefaultNotebookColor
	}
	now := time.Now().UTC()
	nb := &Notebook{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	return nb, nil
}

// Validate checks the notebook's required fields.
func (n *Notebook) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotebookID
	}
	if n.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if n.Name == "" {
		return ErrEmptyNotebookName
	}
	if len([]rune(n.Name)) > 100 {
		return ErrNotebookNameLong
	}
	return nil
}
