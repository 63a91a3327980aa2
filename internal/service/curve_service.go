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

// CurveService manages a user's review curves. Exactly one curve per user is
// the default once the account is seeded.
type CurveService interface {
	// Create adds a curve, making it the default when makeDefault is set.
	Create(ctx context.Context, userID uuid.UUID, name string, intervals []int, makeDefault bool) (*domain.ReviewCurve, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error)
	// List returns the default curve first.
	List(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewCurve, error)
	// Update changes name and/or intervals. Items keep their stage; a stage
	// beyond a shortened curve is clamped at their next review.
	Update(ctx context.Context, userID, id uuid.UUID, name *string, intervals []int) (*domain.ReviewCurve, error)
	// Delete removes a curve other than the default. Items on it fall back
	// to the standard curve.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error)
}

type curveService struct {
	db     *sql.DB
	store  store.CurveStore
	logger *slog.Logger
}

// NewCurveService creates a CurveService.
func NewCurveService(db *sql.DB, curves store.CurveStore, logger *slog.Logger) CurveService {
	if db == nil || curves == nil {
		panic("curve service requires a db and a curve store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &curveService{
		db:     db,
		store:  curves,
		logger: logger.With("component", "curve_service"),
	}
}

func (s *curveService) Create(
	ctx context.Context,
	userID uuid.UUID,
	name string,
	intervals []int,
	makeDefault bool,
) (*domain.ReviewCurve, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	curve, err := domain.NewReviewCurve(userID, name, intervals, false)
	if err != nil {
		return nil, invalid(err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		curves := s.store.WithTx(tx)
		if err := curves.Create(ctx, curve); err != nil {
			return err
		}
		if !makeDefault {
			return nil
		}
		return curves.SetDefault(ctx, userID, curve.ID)
	})
	if err != nil {
		return nil, wrapError(log, "curve", "create", err)
	}
	curve.IsDefault = makeDefault
	log.Debug("curve created", "user_id", userID, "curve_id", curve.ID, "stages", len(curve.Intervals))
	return curve, nil
}

func (s *curveService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	curve, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "curve", "get", err)
	}
	return curve, nil
}

func (s *curveService) List(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewCurve, error) {
	curves, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "curve", "list", err)
	}
	return curves, nil
}

func (s *curveService) Update(
	ctx context.Context,
	userID, id uuid.UUID,
	name *string,
	intervals []int,
) (*domain.ReviewCurve, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.ReviewCurve
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		curves := s.store.WithTx(tx)
		curve, err := curves.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if name != nil {
			curve.Name = strings.TrimSpace(*name)
		}
		if intervals != nil {
			curve.Intervals = append([]int(nil), intervals...)
		}
		curve.UpdatedAt = time.Now().UTC()
		if err := curve.Validate(); err != nil {
			return invalid(err)
		}
		if err := curves.Update(ctx, curve); err != nil {
			return err
		}
		updated = curve
		return nil
	})
	if err != nil {
		return nil, wrapError(log, "curve", "update", err)
	}
	return updated, nil
}

func (s *curveService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		curves := s.store.WithTx(tx)
		curve, err := curves.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if curve.IsDefault {
			return ErrDefaultCurveInUse
		}
		return curves.Delete(ctx, userID, id)
	})
	if err != nil {
		return wrapError(log, "curve", "delete", err)
	}
	log.Info("curve deleted", "user_id", userID, "curve_id", id)
	return nil
}

func (s *curveService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var curve *domain.ReviewCurve
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		curves := s.store.WithTx(tx)
		if err := curves.SetDefault(ctx, userID, id); err != nil {
			return err
		}
		var err error
		curve, err = curves.GetByID(ctx, userID, id)
		return err
	})
	if err != nil {
		return nil, wrapError(log, "curve", "set_default", err)
	}
	log.Info("default curve changed", "user_id", userID, "curve_id", id)
	return curve, nil
}
