package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresCurveStore implements store.CurveStore. Intervals are kept as a
// JSONB array of minutes.
type PostgresCurveStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCurveStore creates a curve store over db.
func NewPostgresCurveStore(db store.DBTX, logger *slog.Logger) *PostgresCurveStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCurveStore{
		db:     db,
		logger: logger.With(slog.String("component", "curve_store")),
	}
}

var _ store.CurveStore = (*PostgresCurveStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresCurveStore) WithTx(tx *sql.Tx) store.CurveStore {
	return &PostgresCurveStore{db: tx, logger: s.logger}
}

const curveColumns = `id, user_id, name, intervals, is_default, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurve(row rowScanner) (*domain.ReviewCurve, error) {
	var (
		c   domain.ReviewCurve
		raw []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &raw, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.Intervals); err != nil {
		return nil, fmt.Errorf("failed to decode intervals of curve %s: %w", c.ID, err)
	}
	return &c, nil
}

// Create inserts a curve. A name already used by the same user (ignoring
// case) yields store.ErrCurveNameExists.
func (s *PostgresCurveStore) Create(ctx context.Context, curve *domain.ReviewCurve) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := curve.Validate(); err != nil {
		return err
	}
	intervals, err := json.Marshal(curve.Intervals)
	if err != nil {
		return fmt.Errorf("failed to encode intervals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_curves (id, user_id, name, intervals, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, curve.ID, curve.UserID, curve.Name, intervals, curve.IsDefault, curve.CreatedAt, curve.UpdatedAt)
	if err != nil {
		log.Warn("failed to create curve",
			slog.String("error", err.Error()),
			slog.String("curve_id", curve.ID.String()),
			slog.String("user_id", curve.UserID.String()))
		return MapUniqueViolation(err, store.ErrCurveNameExists)
	}
	return nil
}

// GetByID implements store.CurveStore.GetByID
func (s *PostgresCurveStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	return s.getOne(ctx, `SELECT `+curveColumns+` FROM review_curves WHERE id = $1 AND user_id = $2`, id, userID)
}

// GetDefault returns the user's default curve.
func (s *PostgresCurveStore) GetDefault(ctx context.Context, userID uuid.UUID) (*domain.ReviewCurve, error) {
	return s.getOne(ctx, `SELECT `+curveColumns+` FROM review_curves WHERE user_id = $1 AND is_default`, userID)
}

func (s *PostgresCurveStore) getOne(ctx context.Context, query string, args ...any) (*domain.ReviewCurve, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	c, err := scanCurve(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCurveNotFound
		}
		log.Error("failed to get curve", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return c, nil
}

// List returns the user's curves with the default first, then by creation.
func (s *PostgresCurveStore) List(ctx context.Context, userID uuid.UUID) (_ []*domain.ReviewCurve, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+curveColumns+`
		FROM review_curves
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC
	`, userID)
	if err != nil {
		log.Error("failed to list curves", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, &err)

	curves := []*domain.ReviewCurve{}
	for rows.Next() {
		c, err := scanCurve(rows)
		if err != nil {
			return nil, err
		}
		curves = append(curves, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return curves, nil
}

// Update writes the curve's name and intervals. The default flag is only
// changed through SetDefault.
func (s *PostgresCurveStore) Update(ctx context.Context, curve *domain.ReviewCurve) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := curve.Validate(); err != nil {
		return err
	}
	intervals, err := json.Marshal(curve.Intervals)
	if err != nil {
		return fmt.Errorf("failed to encode intervals: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE review_curves
		SET name = $1, intervals = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, curve.Name, intervals, curve.UpdatedAt, curve.ID, curve.UserID)
	if err != nil {
		log.Warn("failed to update curve",
			slog.String("error", err.Error()),
			slog.String("curve_id", curve.ID.String()))
		return MapUniqueViolation(err, store.ErrCurveNameExists)
	}
	return CheckRowsAffected(result, store.ErrCurveNotFound)
}

// SetDefault makes id the user's only default curve. The previous default is
// cleared first so the one-default index never sees two rows; callers should
// run it inside a transaction.
func (s *PostgresCurveStore) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `
		UPDATE review_curves
		SET is_default = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_default AND id <> $2
	`, userID, id); err != nil {
		log.Error("failed to clear default curve",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE review_curves
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		log.Error("failed to set default curve",
			slog.String("error", err.Error()),
			slog.String("curve_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCurveNotFound)
}

// Delete removes a curve. Items on it fall back to the standard curve.
func (s *PostgresCurveStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM review_curves WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to delete curve",
			slog.String("error", err.Error()),
			slog.String("curve_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCurveNotFound)
}
