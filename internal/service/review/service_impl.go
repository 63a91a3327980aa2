package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// Stores groups the stores the review service writes through.
type Stores struct {
	Items     store.ItemStore
	Curves    store.CurveStore
	Notebooks store.NotebookStore
	Logs      store.ReviewLogStore
}

func (s Stores) withTx(tx *sql.Tx) Stores {
	return Stores{
		Items:     s.Items.WithTx(tx),
		Curves:    s.Curves.WithTx(tx),
		Notebooks: s.Notebooks.WithTx(tx),
		Logs:      s.Logs.WithTx(tx),
	}
}

// Item change reasons carried on items_changed events.
const (
	ReasonAdded      = "added"
	ReasonUpdated    = "updated"
	ReasonRemembered = "remembered"
	ReasonForgot     = "forgot"
	ReasonPaused     = "paused"
	ReasonResumed    = "resumed"
	ReasonPostponed  = "postponed"
	ReasonDeleted    = "deleted"
	ReasonRestored   = "restored"
)

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	db      *sql.DB
	stores  Stores
	engine  srs.Service
	emitter events.EventEmitter
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates the review service. emitter may be nil, in which case
// no items_changed events are sent.
func NewService(
	db *sql.DB,
	stores Stores,
	engine srs.Service,
	emitter events.EventEmitter,
	logger *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if stores.Items == nil || stores.Curves == nil || stores.Notebooks == nil || stores.Logs == nil {
		panic("all review stores are required")
	}
	if engine == nil {
		panic("srs engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		db:      db,
		stores:  stores,
		engine:  engine,
		emitter: emitter,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "review_service")),
	}
}

// AddItem implements Service.AddItem.
func (s *serviceImpl) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*domain.MemoryItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var created *domain.MemoryItem
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		st := s.stores.withTx(tx)

		if _, err := st.Notebooks.GetByID(ctx, userID, req.NotebookID); err != nil {
			return err
		}

		curve, err := s.curveForNewItem(ctx, st, userID, req.CurveID)
		if err != nil {
			return err
		}

		item, err := domain.NewMemoryItem(userID, req.NotebookID, &curve.ID, req.Title, req.Content, req.ImagePaths)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}

		scheduled, err := s.engine.Start(item, curve, s.now())
		if err != nil {
			return err
		}
		if err := st.Items.Create(ctx, scheduled); err != nil {
			return err
		}
		created = scheduled
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "add_item", "failed to add item", err)
	}

	log.Info("item added",
		slog.String("user_id", userID.String()),
		slog.String("item_id", created.ID.String()),
		slog.Time("next_review_at", created.NextReviewAt))
	s.emitChanged(ctx, userID, created.ID, ReasonAdded)
	return created, nil
}

func (s *serviceImpl) curveForNewItem(
	ctx context.Context,
	st Stores,
	userID uuid.UUID,
	curveID *uuid.UUID,
) (*domain.ReviewCurve, error) {
	if curveID != nil {
		return st.Curves.GetByID(ctx, userID, *curveID)
	}
	curve, err := st.Curves.GetDefault(ctx, userID)
	if store.IsNotFoundError(err) {
		return nil, ErrNoDefaultCurve
	}
	return curve, err
}

// curveOf loads the item's curve. A curve that no longer exists yields nil,
// which the engine treats as the standard curve.
func (s *serviceImpl) curveOf(ctx context.Context, st Stores, item *domain.MemoryItem) (*domain.ReviewCurve, error) {
	if item.CurveID == nil {
		return nil, nil
	}
	curve, err := st.Curves.GetByID(ctx, item.UserID, *item.CurveID)
	if store.IsNotFoundError(err) {
		return nil, nil
	}
	return curve, err
}

// UpdateItem implements Service.UpdateItem.
func (s *serviceImpl) UpdateItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
	req UpdateItemRequest,
) (*domain.MemoryItem, error) {
	return s.mutate(ctx, "update_item", userID, itemID, ReasonUpdated,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			next := *item
			if req.NotebookID != nil && *req.NotebookID != item.NotebookID {
				if _, err := st.Notebooks.GetByID(ctx, userID, *req.NotebookID); err != nil {
					return nil, err
				}
				next.NotebookID = *req.NotebookID
			}
			if req.Title != nil {
				next.Title = strings.TrimSpace(*req.Title)
			}
			if req.Content != nil {
				next.Content = *req.Content
			}
			if req.ImagePaths != nil {
				next.ImagePaths = append([]string{}, (*req.ImagePaths)...)
			}
			if req.CurveID != nil && (item.CurveID == nil || *req.CurveID != *item.CurveID) {
				curve, err := st.Curves.GetByID(ctx, userID, *req.CurveID)
				if err != nil {
					return nil, err
				}
				id := curve.ID
				next.CurveID = &id
				if next.StageIndex >= len(curve.Intervals) {
					next.StageIndex = len(curve.Intervals) - 1
				}
			}
			next.Touch(now)
			if err := next.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			return &next, nil
		})
}

// MarkRemembered implements Service.MarkRemembered.
func (s *serviceImpl) MarkRemembered(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return s.review(ctx, "mark_remembered", userID, itemID, domain.ReviewActionRemembered)
}

// MarkForgot implements Service.MarkForgot.
func (s *serviceImpl) MarkForgot(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return s.review(ctx, "mark_forgot", userID, itemID, domain.ReviewActionForgot)
}

func (s *serviceImpl) review(
	ctx context.Context,
	op string,
	userID, itemID uuid.UUID,
	action domain.ReviewAction,
) (*domain.MemoryItem, error) {
	reason := ReasonRemembered
	if action == domain.ReviewActionForgot {
		reason = ReasonForgot
	}
	return s.mutate(ctx, op, userID, itemID, reason,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			curve, err := s.curveOf(ctx, st, item)
			if err != nil {
				return nil, err
			}

			var next *domain.MemoryItem
			if action == domain.ReviewActionRemembered {
				next, err = s.engine.Remembered(item, curve, now)
			} else {
				next, err = s.engine.Forgot(item, curve, now)
			}
			if err != nil {
				return nil, engineError(err)
			}

			// The log keeps the review time the item was planned for.
			entry, err := domain.NewReviewLog(item, action, now)
			if err != nil {
				return nil, err
			}
			if err := st.Logs.Create(ctx, entry); err != nil {
				return nil, err
			}
			return next, nil
		})
}

// Pause implements Service.Pause.
func (s *serviceImpl) Pause(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return s.mutate(ctx, "pause", userID, itemID, ReasonPaused,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			next, err := s.engine.Pause(item, now)
			return next, engineError(err)
		})
}

// Resume implements Service.Resume.
func (s *serviceImpl) Resume(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return s.mutate(ctx, "resume", userID, itemID, ReasonResumed,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			curve, err := s.curveOf(ctx, st, item)
			if err != nil {
				return nil, err
			}
			next, err := s.engine.Resume(item, curve, now)
			return next, engineError(err)
		})
}

// Postpone implements Service.Postpone.
func (s *serviceImpl) Postpone(ctx context.Context, userID, itemID uuid.UUID, minutes int) (*domain.MemoryItem, error) {
	return s.mutate(ctx, "postpone", userID, itemID, ReasonPostponed,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			next, err := s.engine.Postpone(item, minutes, now)
			return next, engineError(err)
		})
}

// Delete implements Service.Delete.
func (s *serviceImpl) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	_, err := s.mutate(ctx, "delete", userID, itemID, ReasonDeleted,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if item.IsDeleted() {
				return nil, ErrItemDeleted
			}
			next := *item
			deletedAt := now
			next.DeletedAt = &deletedAt
			next.Touch(now)
			return &next, nil
		})
	return err
}

// Restore implements Service.Restore.
func (s *serviceImpl) Restore(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return s.mutate(ctx, "restore", userID, itemID, ReasonRestored,
		func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error) {
			if !item.IsDeleted() {
				return nil, ErrItemNotDeleted
			}
			next := *item
			next.DeletedAt = nil
			next.Touch(now)
			return &next, nil
		})
}

type mutation func(ctx context.Context, st Stores, item *domain.MemoryItem, now time.Time) (*domain.MemoryItem, error)

// mutate locks the item, applies fn and writes the result in one
// transaction, then emits items_changed.
func (s *serviceImpl) mutate(
	ctx context.Context,
	op string,
	userID, itemID uuid.UUID,
	reason string,
	fn mutation,
) (*domain.MemoryItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.MemoryItem
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		st := s.stores.withTx(tx)

		item, err := st.Items.GetForUpdate(ctx, userID, itemID)
		if err != nil {
			return err
		}
		next, err := fn(ctx, st, item, s.now().UTC())
		if err != nil {
			return err
		}
		if err := st.Items.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, "failed to change item", err)
	}

	log.Debug("item changed",
		slog.String("operation", op),
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("status", string(updated.Status)),
		slog.Int("stage_index", updated.StageIndex),
		slog.Time("next_review_at", updated.NextReviewAt))
	s.emitChanged(ctx, userID, itemID, reason)
	return updated, nil
}

func (s *serviceImpl) emitChanged(ctx context.Context, userID, itemID uuid.UUID, reason string) {
	id := itemID
	err := events.Emit(ctx, s.emitter, events.TypeItemsChanged, events.ItemsChangedPayload{
		UserID: userID,
		ItemID: &id,
		Reason: reason,
	})
	if err != nil {
		// The change is committed; a missed event only delays the alarm
		// until the next change or restart.
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit items_changed",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
	}
}

// fail passes expected errors through and wraps anything else.
func (s *serviceImpl) fail(ctx context.Context, op, message string, err error) error {
	if isExpected(err) {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Error(message,
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return newServiceError(op, message, err)
}

func isExpected(err error) bool {
	return store.IsNotFoundError(err) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, ErrNoDefaultCurve) ||
		errors.Is(err, ErrItemNotReviewable) ||
		errors.Is(err, ErrItemDeleted) ||
		errors.Is(err, ErrItemNotDeleted) ||
		errors.Is(err, srs.ErrInvalidMinutes)
}

// engineError marks state errors from the engine as ErrItemNotReviewable.
func engineError(err error) error {
	if errors.Is(err, srs.ErrNotReviewing) ||
		errors.Is(err, srs.ErrNotPaused) ||
		errors.Is(err, srs.ErrAlreadyCompleted) {
		return fmt.Errorf("%w: %w", ErrItemNotReviewable, err)
	}
	return err
}
