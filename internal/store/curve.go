package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// CurveStore persists review curves.
type CurveStore interface {
	// Create returns ErrCurveNameExists when the user already has a curve
	// with that name.
	Create(ctx context.Context, curve *domain.ReviewCurve) error

	// GetByID returns ErrCurveNotFound if no such curve belongs to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error)

	// GetDefault returns the user's default curve, or ErrCurveNotFound.
	GetDefault(ctx context.Context, userID uuid.UUID) (*domain.ReviewCurve, error)

	List(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewCurve, error)

	// Update saves name and interval changes. IsDefault is ignored; use SetDefault.
	Update(ctx context.Context, curve *domain.ReviewCurve) error

	// SetDefault makes id the user's only default curve.
	SetDefault(ctx context.Context, userID, id uuid.UUID) error

	// Delete removes the curve. Items on it fall back to the standard curve.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	WithTx(tx *sql.Tx) CurveStore
}
