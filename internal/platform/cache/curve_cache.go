// Package cache holds read-through caches placed in front of stores.
package cache

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCurveCacheSize is used when a non-positive size is configured.
const DefaultCurveCacheSize = 1024

// CurveStore caches curve lookups by ID and each user's default curve.
// Every write through it invalidates the affected entries, once when the write
// is issued and again after its transaction commits. Stores bound to a
// transaction read through to the database and never fill the cache, so
// uncommitted rows cannot leak into it.
type CurveStore struct {
	inner    store.CurveStore
	byID     *lru.Cache[uuid.UUID, *domain.ReviewCurve]
	defaults *lru.Cache[uuid.UUID, *domain.ReviewCurve]
	gen      *generation
	fill     bool
	lookups  *prometheus.CounterVec
	logger   *slog.Logger
}

var _ store.CurveStore = (*CurveStore)(nil)

// NewCurveStore wraps inner with LRU caches holding up to size entries each.
func NewCurveStore(inner store.CurveStore, size int, logger *slog.Logger) (*CurveStore, error) {
	if inner == nil {
		panic("inner curve store cannot be nil")
	}
	if size <= 0 {
		size = DefaultCurveCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	byID, err := lru.New[uuid.UUID, *domain.ReviewCurve](size)
	if err != nil {
		return nil, err
	}
	defaults, err := lru.New[uuid.UUID, *domain.ReviewCurve](size)
	if err != nil {
		return nil, err
	}
	return &CurveStore{
		inner:    inner,
		byID:     byID,
		defaults: defaults,
		gen:      &generation{},
		fill:     true,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "curve_cache",
			Name:      "lookups_total",
			Help:      "Curve cache lookups, by result.",
		}, []string{"result"}),
		logger: logger.With(slog.String("component", "curve_cache")),
	}, nil
}

// Collectors exposes the cache's metrics for registration.
func (c *CurveStore) Collectors() []prometheus.Collector {
	size := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "recall",
		Subsystem: "curve_cache",
		Name:      "entries",
		Help:      "Curves currently cached by ID.",
	}, func() float64 { return float64(c.byID.Len()) })
	return []prometheus.Collector{c.lookups, size}
}

// WithTx returns a store bound to tx that shares this cache for
// invalidation only.
func (c *CurveStore) WithTx(tx *sql.Tx) store.CurveStore {
	return &CurveStore{
		inner:    c.inner.WithTx(tx),
		byID:     c.byID,
		defaults: c.defaults,
		gen:      c.gen,
		fill:     false,
		lookups:  c.lookups,
		logger:   c.logger,
	}
}

// generation counts invalidations. A fill is dropped when an invalidation
// happened while its row was being read.
type generation struct {
	mu sync.Mutex
	n  uint64
}

func (g *generation) current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func (g *generation) addIf(seen uint64, add func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == seen {
		add()
	}
}

func (g *generation) invalidate(remove func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	remove()
}

func (c *CurveStore) hit(ok bool) {
	if ok {
		c.lookups.WithLabelValues("hit").Inc()
	} else {
		c.lookups.WithLabelValues("miss").Inc()
	}
}

// GetByID returns a copy of the cached curve or loads it.
func (c *CurveStore) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.ReviewCurve, error) {
	if curve, ok := c.byID.Get(id); ok && curve.UserID == userID {
		c.hit(true)
		return clone(curve), nil
	}
	c.hit(false)

	seen := c.gen.current()
	curve, err := c.inner.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.fill {
		cp := clone(curve)
		c.gen.addIf(seen, func() { c.byID.Add(id, cp) })
	}
	return curve, nil
}

// GetDefault returns a copy of the user's cached default curve or loads it.
func (c *CurveStore) GetDefault(ctx context.Context, userID uuid.UUID) (*domain.ReviewCurve, error) {
	if curve, ok := c.defaults.Get(userID); ok {
		c.hit(true)
		return clone(curve), nil
	}
	c.hit(false)

	seen := c.gen.current()
	curve, err := c.inner.GetDefault(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.fill {
		cp := clone(curve)
		c.gen.addIf(seen, func() { c.defaults.Add(userID, cp) })
	}
	return curve, nil
}

// List is not cached.
func (c *CurveStore) List(ctx context.Context, userID uuid.UUID) ([]*domain.ReviewCurve, error) {
	return c.inner.List(ctx, userID)
}

func (c *CurveStore) Create(ctx context.Context, curve *domain.ReviewCurve) error {
	if !curve.IsDefault {
		return c.inner.Create(ctx, curve)
	}
	userID := curve.UserID
	return c.write(ctx, func() { c.defaults.Remove(userID) }, func() error {
		return c.inner.Create(ctx, curve)
	})
}

func (c *CurveStore) Update(ctx context.Context, curve *domain.ReviewCurve) error {
	id, userID := curve.ID, curve.UserID
	return c.write(ctx, func() {
		c.byID.Remove(id)
		c.defaults.Remove(userID)
	}, func() error {
		return c.inner.Update(ctx, curve)
	})
}

// SetDefault flips the default flag on two curves, so every cached curve of
// the user is dropped.
func (c *CurveStore) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return c.write(ctx, func() { c.invalidateUser(userID) }, func() error {
		return c.inner.SetDefault(ctx, userID, id)
	})
}

func (c *CurveStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return c.write(ctx, func() {
		c.byID.Remove(id)
		c.defaults.Remove(userID)
	}, func() error {
		return c.inner.Delete(ctx, userID, id)
	})
}

// write drops the entries before the write and again once the surrounding
// transaction commits, since a read outside the transaction may refill them
// with the old row in between.
func (c *CurveStore) write(ctx context.Context, remove func(), do func() error) error {
	c.gen.invalidate(remove)
	if err := do(); err != nil {
		return err
	}
	store.AfterCommit(ctx, func() { c.gen.invalidate(remove) })
	return nil
}

func (c *CurveStore) invalidateUser(userID uuid.UUID) {
	c.defaults.Remove(userID)
	removed := 0
	for _, id := range c.byID.Keys() {
		if curve, ok := c.byID.Peek(id); ok && curve.UserID == userID {
			c.byID.Remove(id)
			removed++
		}
	}
	c.logger.Debug("invalidated cached curves",
		slog.String("user_id", userID.String()),
		slog.Int("count", removed))
}

func clone(c *domain.ReviewCurve) *domain.ReviewCurve {
	cp := *c
	cp.Intervals = append([]int(nil), c.Intervals...)
	return &cp
}
