package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/recall-api/internal/domain"
)

// Common errors
var (
	ErrNilItem          = errors.New("memory item cannot be nil")
	ErrNotReviewing     = errors.New("item is not under review")
	ErrNotPaused        = errors.New("item is not paused")
	ErrAlreadyCompleted = errors.New("item has already completed its curve")
	ErrInvalidMinutes   = errors.New("postpone minutes out of range")
)

// Service defines the curve engine operations. Every method returns a new
// item and leaves its argument untouched.
type Service interface {
	// Intervals resolves the interval list for curve, falling back to the
	// standard curve when curve is nil or unusable.
	Intervals(curve *domain.ReviewCurve) []int

	// Start puts a new item on stage 0 of its curve.
	Start(item *domain.MemoryItem, curve *domain.ReviewCurve, now time.Time) (*domain.MemoryItem, error)

	// Remembered advances a reviewing item one stage or completes it.
	Remembered(item *domain.MemoryItem, curve *domain.ReviewCurve, now time.Time) (*domain.MemoryItem, error)

	// Forgot resets a reviewing item to stage 0.
	Forgot(item *domain.MemoryItem, curve *domain.ReviewCurve, now time.Time) (*domain.MemoryItem, error)

	// Pause takes a reviewing item out of the schedule.
	Pause(item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error)

	// Resume schedules a paused item from its current stage.
	Resume(item *domain.MemoryItem, curve *domain.ReviewCurve, now time.Time) (*domain.MemoryItem, error)

	// Postpone pushes a reviewing item's next review later by minutes.
	Postpone(item *domain.MemoryItem, minutes int, now time.Time) (*domain.MemoryItem, error)
}

type defaultService struct {
	params *Params
}

var _ Service = (*defaultService)(nil)

// NewDefaultService creates a new curve engine with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new curve engine with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

func (s *defaultService) Intervals(curve *domain.ReviewCurve) []int {
	return append([]int(nil), resolveIntervals(curve, s.params)...)
}

func (s *defaultService) Start(
	item *domain.MemoryItem,
	curve *domain.ReviewCurve,
	now time.Time,
) (*domain.MemoryItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	return calculateStart(item, resolveIntervals(curve, s.params), now, s.params), nil
}

func (s *defaultService) Remembered(
	item *domain.MemoryItem,
	curve *domain.ReviewCurve,
	now time.Time,
) (*domain.MemoryItem, error) {
	if err := requireReviewing(item); err != nil {
		return nil, err
	}
	return calculateRemembered(item, resolveIntervals(curve, s.params), now, s.params), nil
}

func (s *defaultService) Forgot(
	item *domain.MemoryItem,
	curve *domain.ReviewCurve,
	now time.Time,
) (*domain.MemoryItem, error) {
	if err := requireReviewing(item); err != nil {
		return nil, err
	}
	return calculateForgot(item, resolveIntervals(curve, s.params), now, s.params), nil
}

func (s *defaultService) Pause(item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
	if err := requireReviewing(item); err != nil {
		return nil, err
	}
	next := copyItem(item, now)
	next.Status = domain.ItemStatusPaused
	return next, nil
}

func (s *defaultService) Resume(
	item *domain.MemoryItem,
	curve *domain.ReviewCurve,
	now time.Time,
) (*domain.MemoryItem, error) {
	if item == nil {
		return nil, ErrNilItem
	}
	if item.Status != domain.ItemStatusPaused {
		return nil, ErrNotPaused
	}
	return calculateResume(item, resolveIntervals(curve, s.params), now, s.params), nil
}

func (s *defaultService) Postpone(item *domain.MemoryItem, minutes int, now time.Time) (*domain.MemoryItem, error) {
	if err := requireReviewing(item); err != nil {
		return nil, err
	}
	if minutes < 1 || minutes > s.params.MaxPostponeMinutes {
		return nil, ErrInvalidMinutes
	}

	next := copyItem(item, now)
	// Postponing an overdue item counts from now, not from the missed time.
	base := item.NextReviewAt
	if base.Before(now) {
		base = now.UTC()
	}
	next.NextReviewAt = addMinutes(base, minutes)
	return next, nil
}

func requireReviewing(item *domain.MemoryItem) error {
	if item == nil {
		return ErrNilItem
	}
	switch item.Status {
	case domain.ItemStatusReviewing:
		return nil
	case domain.ItemStatusCompleted:
		return ErrAlreadyCompleted
	default:
		return ErrNotReviewing
	}
}
