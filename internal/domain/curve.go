package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyCurveID     = errors.New("curve ID cannot be empty")
	ErrEmptyCurveName   = errors.New("curve name cannot be empty")
	ErrEmptyIntervals   = errors.New("curve must have at least one interval")
	ErrInvalidInterval  = errors.New("curve intervals must be positive minutes")
	ErrTooManyIntervals = errors.New("curve has too many intervals")
)

// MaxCurveIntervals bounds the number of stages a curve may define.
const MaxCurveIntervals = 64

// ReviewCurve is a named, ordered list of review intervals in minutes.
// Stage i of an item on this curve waits Intervals[i] minutes.
type ReviewCurve struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Intervals []int     `json:"intervals"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReviewCurve creates a curve owned by userID. The intervals slice is copied.
func NewReviewCurve(userID uuid.UUID, name string, intervals []int, isDefault bool) (*ReviewCurve, error) {
	now := time.Now().UTC()
	c := &ReviewCurve{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Intervals: append([]int(nil), intervals...),
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the curve's identity and its interval list.
func (c *ReviewCurve) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCurveID
	}
	if c.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if c.Name == "" {
		return ErrEmptyCurveName
	}
	return ValidateIntervals(c.Intervals)
}

// ValidateIntervals reports whether intervals can drive a review schedule.
func ValidateIntervals(intervals []int) error {
	if len(intervals) == 0 {
		return ErrEmptyIntervals
	}
	if len(intervals) > MaxCurveIntervals {
		return ErrTooManyIntervals
	}
	for _, m := range intervals {
		if m <= 0 {
			return ErrInvalidInterval
		}
	}
	return nil
}

// Stages returns the number of stages on the curve.
func (c *ReviewCurve) Stages() int {
	return len(c.Intervals)
}
