package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the review lifecycle state of a MemoryItem.
type ItemStatus string

const (
	ItemStatusNew       ItemStatus = "new"
	ItemStatusReviewing ItemStatus = "reviewing"
	ItemStatusCompleted ItemStatus = "completed"
	ItemStatusPaused    ItemStatus = "paused"
)

// FarFuture is stored as the next review time of items that will never be
// reviewed again. It keeps next_review_at non-null and sorts last.
var FarFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// MaxImagePaths bounds the images attached to one item.
const MaxImagePaths = 20

var (
	ErrEmptyItemID     = errors.New("item ID cannot be empty")
	ErrEmptyItemTitle  = errors.New("item title cannot be empty")
	ErrItemTitleLong   = errors.New("item title must be at most 200 characters")
	ErrInvalidStatus   = errors.New("invalid item status")
	ErrInvalidStage    = errors.New("stage index out of range")
	ErrTooManyImages   = errors.New("too many image paths")
	ErrEmptyImagePath  = errors.New("image path cannot be empty")
	ErrItemNotReviewed = errors.New("item is not under review")
)

// MemoryItem is one thing to memorize together with its review state.
type MemoryItem struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	NotebookID   uuid.UUID  `json:"notebook_id"`
	CurveID      *uuid.UUID `json:"curve_id,omitempty"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ImagePaths   []string   `json:"image_paths"`
	Status       ItemStatus `json:"status"`
	StageIndex   int        `json:"stage_index"`
	NextReviewAt time.Time  `json:"next_review_at"`
	LastReviewAt *time.Time `json:"last_review_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// NewMemoryItem creates an item in the new state. Scheduling it is the
// caller's job.
func NewMemoryItem(
	userID, notebookID uuid.UUID,
	curveID *uuid.UUID,
	title, content string,
	imagePaths []string,
) (*MemoryItem, error) {
	now := time.Now().UTC()
	if imagePaths == nil {
		imagePaths = []string{}
	}
	item := &MemoryItem{
		ID:           uuid.New(),
		UserID:       userID,
		NotebookID:   notebookID,
		CurveID:      curveID,
		Title:        strings.TrimSpace(title),
		Content:      content,
		ImagePaths:   append([]string{}, imagePaths...),
		Status:       ItemStatusNew,
		NextReviewAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the item's required fields and status.
func (i *MemoryItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}
	if i.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if i.NotebookID == uuid.Nil {
		return ErrEmptyNotebookID
	}
	if i.Title == "" {
		return ErrEmptyItemTitle
	}
	if len([]rune(i.Title)) > 200 {
		return ErrItemTitleLong
	}
	if len(i.ImagePaths) > MaxImagePaths {
		return ErrTooManyImages
	}
	for _, p := range i.ImagePaths {
		if strings.TrimSpace(p) == "" {
			return ErrEmptyImagePath
		}
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	if i.StageIndex < 0 {
		return ErrInvalidStage
	}
	return nil
}

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusNew, ItemStatusReviewing, ItemStatusCompleted, ItemStatusPaused:
		return true
	default:
		return false
	}
}

// IsDeleted reports whether the item sits in the trash.
func (i *MemoryItem) IsDeleted() bool {
	return i.DeletedAt != nil
}

// IsDue reports whether the item should be reviewed at now.
func (i *MemoryItem) IsDue(now time.Time) bool {
	return i.Status == ItemStatusReviewing && !i.IsDeleted() && !i.NextReviewAt.After(now)
}

// Touch bumps UpdatedAt.
func (i *MemoryItem) Touch(now time.Time) {
	i.UpdatedAt = now.UTC()
}
