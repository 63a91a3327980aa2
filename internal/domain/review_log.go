package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewAction is the outcome a user reported for a review.
type ReviewAction string

const (
	ReviewActionRemembered ReviewAction = "remembered"
	ReviewActionForgot     ReviewAction = "forgot"
)

var ErrInvalidReviewAction = errors.New("invalid review action")

// ReviewLog records a single review of an item.
type ReviewLog struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	ItemID     uuid.UUID    `json:"item_id"`
	ReviewedAt time.Time    `json:"reviewed_at"`
	PlannedAt  time.Time    `json:"planned_at"`
	Action     ReviewAction `json:"action"`
}

// NewReviewLog records that item was reviewed at reviewedAt when it had been
// planned for plannedAt.
func NewReviewLog(item *MemoryItem, action ReviewAction, reviewedAt time.Time) (*ReviewLog, error) {
	if item == nil || item.ID == uuid.Nil {
		return nil, ErrEmptyItemID
	}
	log := &ReviewLog{
		ID:         uuid.New(),
		UserID:     item.UserID,
		ItemID:     item.ID,
		ReviewedAt: reviewedAt.UTC(),
		PlannedAt:  item.NextReviewAt.UTC(),
		Action:     action,
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	return log, nil
}

// Validate checks the log's references and action.
func (l *ReviewLog) Validate() error {
	if l.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if l.ItemID == uuid.Nil {
		return ErrEmptyItemID
	}
	switch l.Action {
	case ReviewActionRemembered, ReviewActionForgot:
		return nil
	default:
		return ErrInvalidReviewAction
	}
}

// Lateness is how long after its planned time the review happened.
// Early reviews yield a negative duration.
func (l *ReviewLog) Lateness() time.Duration {
	return l.ReviewedAt.Sub(l.PlannedAt)
}
