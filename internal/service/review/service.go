// Package review applies review outcomes and other schedule changes to
// memory items. Every mutation runs in one transaction and, after commit,
// announces itself with an items_changed event so the review alarm can be
// re-derived.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// AddItemRequest describes a new memory item. A nil CurveID schedules the
// item on the user's default curve.
type AddItemRequest struct {
	NotebookID uuid.UUID
	CurveID    *uuid.UUID
	Title      string
	Content    string
	ImagePaths []string
}

// UpdateItemRequest carries edits to an item's content. Nil fields are left
// unchanged.
type UpdateItemRequest struct {
	NotebookID *uuid.UUID
	CurveID    *uuid.UUID
	Title      *string
	Content    *string
	ImagePaths *[]string
}

// Service is the review engine as exposed to the API.
type Service interface {
	// AddItem creates an item and schedules its first review.
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*domain.MemoryItem, error)

	// UpdateItem edits an item. Moving it to a shorter curve clamps its stage.
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*domain.MemoryItem, error)

	// MarkRemembered logs a successful review and advances the item, which
	// completes after the last stage of its curve.
	MarkRemembered(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)

	// MarkForgot logs a failed review and sends the item back to stage 0.
	MarkForgot(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)

	// Pause takes a reviewing item out of the schedule.
	Pause(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)

	// Resume reschedules a paused item from its current stage.
	Resume(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)

	// Postpone pushes a reviewing item's next review back by minutes.
	Postpone(ctx context.Context, userID, itemID uuid.UUID, minutes int) (*domain.MemoryItem, error)

	// Delete moves an item to the trash.
	Delete(ctx context.Context, userID, itemID uuid.UUID) error

	// Restore takes an item out of the trash with its schedule intact.
	Restore(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error)
}

var (
	// ErrNoDefaultCurve means the user has no default curve to schedule on.
	ErrNoDefaultCurve = errors.New("no default review curve")

	// ErrItemNotReviewable means the item's status does not allow the
	// requested schedule change.
	ErrItemNotReviewable = errors.New("item cannot be reviewed in its current state")

	// ErrItemDeleted means the item is in the trash.
	ErrItemDeleted = errors.New("item is deleted")

	// ErrItemNotDeleted means Restore was called on a live item.
	ErrItemNotDeleted = errors.New("item is not deleted")
)

// ServiceError wraps unexpected failures with the operation that hit them.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
