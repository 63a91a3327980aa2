package cache

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore is an in-memory store.CurveStore that counts reads.
type countingStore struct {
	mu       sync.Mutex
	curves   map[uuid.UUID]*domain.ReviewCurve
	getByID  int
	getDeflt int
}

func newCountingStore(curves ...*domain.ReviewCurve) *countingStore {
	s := &countingStore{curves: make(map[uuid.UUID]*domain.ReviewCurve)}
	for _, c := range curves {
		s.curves[c.ID] = c
	}
	return s
}

func (s *countingStore) Create(_ context.Context, c *domain.ReviewCurve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[c.ID] = c
	return nil
}

func (s *countingStore) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getByID++
	c, ok := s.curves[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrCurveNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *countingStore) GetDefault(_ context.Context, userID uuid.UUID) (*domain.ReviewCurve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getDeflt++
	for _, c := range s.curves {
		if c.UserID == userID && c.IsDefault {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrCurveNotFound
}

func (s *countingStore) List(context.Context, uuid.UUID) ([]*domain.ReviewCurve, error) {
	return nil, nil
}

func (s *countingStore) Update(_ context.Context, c *domain.ReviewCurve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[c.ID] = c
	return nil
}

func (s *countingStore) SetDefault(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.curves {
		if c.UserID == userID {
			c.IsDefault = c.ID == id
		}
	}
	return nil
}

func (s *countingStore) Delete(_ context.Context, _, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.curves, id)
	return nil
}

func (s *countingStore) WithTx(*sql.Tx) store.CurveStore { return s }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func mustCurve(t *testing.T, userID uuid.UUID, name string, isDefault bool) *domain.ReviewCurve {
	t.Helper()
	c, err := domain.NewReviewCurve(userID, name, []int{5, 30}, isDefault)
	require.NoError(t, err)
	return c
}

func TestCurveStore_GetByIDIsCached(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	curve := mustCurve(t, userID, "Standard", true)
	inner := newCountingStore(curve)
	c, err := NewCurveStore(inner, 8, quiet())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.GetByID(ctx, userID, curve.ID)
	require.NoError(t, err)
	second, err := c.GetByID(ctx, userID, curve.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.getByID)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues("miss")))

	// Callers get copies.
	second.Intervals[0] = 999
	third, err := c.GetByID(ctx, userID, curve.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, third.Intervals[0])
}

func TestCurveStore_GetByIDChecksOwner(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	curve := mustCurve(t, owner, "Mine", false)
	c, err := NewCurveStore(newCountingStore(curve), 8, quiet())
	require.NoError(t, err)

	_, err = c.GetByID(context.Background(), owner, curve.ID)
	require.NoError(t, err)

	_, err = c.GetByID(context.Background(), uuid.New(), curve.ID)
	assert.ErrorIs(t, err, store.ErrCurveNotFound)
}

func TestCurveStore_UpdateInvalidates(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	curve := mustCurve(t, userID, "Standard", true)
	inner := newCountingStore(curve)
	c, err := NewCurveStore(inner, 8, quiet())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GetDefault(ctx, userID)
	require.NoError(t, err)

	updated := *curve
	updated.Intervals = []int{1, 2, 3}
	require.NoError(t, c.Update(ctx, &updated))

	got, err := c.GetDefault(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got.Intervals)
	assert.Equal(t, 2, inner.getDeflt)
}

func TestCurveStore_SetDefaultDropsUserEntries(t *testing.T) {
	t.Parallel()

	userID, other := uuid.New(), uuid.New()
	a := mustCurve(t, userID, "A", true)
	b := mustCurve(t, userID, "B", false)
	x := mustCurve(t, other, "X", true)
	c, err := NewCurveStore(newCountingStore(a, b, x), 8, quiet())
	require.NoError(t, err)
	ctx := context.Background()

	for _, curve := range []*domain.ReviewCurve{a, b, x} {
		_, err := c.GetByID(ctx, curve.UserID, curve.ID)
		require.NoError(t, err)
	}
	require.NoError(t, c.SetDefault(ctx, userID, b.ID))

	assert.Equal(t, 1, c.byID.Len())
	assert.True(t, c.byID.Contains(x.ID))

	def, err := c.GetDefault(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)
}

func TestCurveStore_TxStoreDoesNotFill(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	curve := mustCurve(t, userID, "Standard", true)
	c, err := NewCurveStore(newCountingStore(curve), 8, quiet())
	require.NoError(t, err)

	txStore := c.WithTx(nil)
	_, err = txStore.GetByID(context.Background(), userID, curve.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, c.byID.Len())
}

// stagedStore applies writes made through WithTx only when the transaction
// commits, so reads outside it still see the committed row.
type stagedStore struct {
	*countingStore
}

func (s stagedStore) WithTx(*sql.Tx) store.CurveStore { return stagedTx{s.countingStore} }

type stagedTx struct {
	*countingStore
}

func (s stagedTx) Update(ctx context.Context, c *domain.ReviewCurve) error {
	store.AfterCommit(ctx, func() { _ = s.countingStore.Update(ctx, c) })
	return nil
}

func (s stagedTx) WithTx(*sql.Tx) store.CurveStore { return s }

func TestCurveStore_ReadBeforeCommitDoesNotKeepOldRow(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	curve := mustCurve(t, userID, "Standard", true)
	c, err := NewCurveStore(stagedStore{newCountingStore(curve)}, 8, quiet())
	require.NoError(t, err)
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.ExpectBegin()
	mock.ExpectCommit()

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		updated := *curve
		updated.Intervals = []int{60, 120, 240}
		require.NoError(t, c.WithTx(tx).Update(ctx, &updated))

		// A concurrent request outside the transaction still sees the old row.
		old, err := c.GetByID(context.Background(), userID, curve.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{5, 30}, old.Intervals)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	got, err := c.GetByID(ctx, userID, curve.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 120, 240}, got.Intervals)

	def, err := c.WithTx(nil).GetDefault(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 120, 240}, def.Intervals)
}

func TestCurveStore_FillRacingInvalidationIsDropped(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	curve := mustCurve(t, userID, "Standard", true)
	c, err := NewCurveStore(newCountingStore(curve), 8, quiet())
	require.NoError(t, err)

	seen := c.gen.current()
	c.gen.invalidate(func() {})
	c.gen.addIf(seen, func() { c.byID.Add(curve.ID, curve) })

	assert.Equal(t, 0, c.byID.Len())
}
