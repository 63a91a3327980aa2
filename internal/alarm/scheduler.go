package alarm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// ItemSource answers the two questions the scheduler asks of stored items.
// store.ItemStore implements it.
type ItemSource interface {
	// NextReviewAfter returns the earliest next review strictly after now
	// among live reviewing items, or nil.
	NextReviewAfter(ctx context.Context, now time.Time) (*time.Time, error)

	// CountDueByUser counts live reviewing items due at now, per user.
	CountDueByUser(ctx context.Context, now time.Time) (map[uuid.UUID]int, error)
}

// Config tunes the scheduler.
type Config struct {
	// MinDelay is the shortest delay a timer is armed with. Earlier targets
	// are pushed back to now+MinDelay.
	MinDelay time.Duration

	// RemindOnStart fires once during Start so items that fell due while the
	// process was down are reminded.
	RemindOnStart bool

	// RetryDelay is the first wait before retrying a failed re-arm when no
	// alarm is left armed. It doubles on each consecutive failure up to
	// MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// Clock returns the current time; nil means time.Now.
	Clock func() time.Time
}

// Default retry delays, used when Config leaves them unset.
const (
	DefaultRetryDelay    = 5 * time.Second
	DefaultMaxRetryDelay = 5 * time.Minute
)

// Scheduler owns the single review alarm.
type Scheduler struct {
	items   ItemSource
	emitter events.EventEmitter
	config  Config
	logger  *slog.Logger

	// mu serializes Reschedule end to end, so a slower query can never
	// overwrite the timer armed from a newer one.
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	failures   int
	nextFire   time.Time
	stopped    bool
	baseCtx    context.Context
	inFlight   sync.WaitGroup

	reschedules prometheus.Counter
	fires       prometheus.Counter
	reminders   prometheus.Counter
	armedAt     prometheus.Gauge
}

var _ events.EventHandler = (*Scheduler)(nil)

// NewScheduler creates a scheduler. Nothing is armed until Start or
// Reschedule is called.
func NewScheduler(items ItemSource, emitter events.EventEmitter, config Config, logger *slog.Logger) *Scheduler {
	if items == nil {
		panic("item source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.MinDelay < 0 {
		config.MinDelay = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = max(DefaultMaxRetryDelay, config.RetryDelay)
	}

	return &Scheduler{
		items:   items,
		emitter: emitter,
		config:  config,
		logger:  logger.With(slog.String("component", "alarm_scheduler")),
		baseCtx: context.Background(),
		reschedules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "alarm",
			Name:      "reschedules_total",
			Help:      "Times the review alarm was re-derived.",
		}),
		fires: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "alarm",
			Name:      "fires_total",
			Help:      "Times the review alarm went off.",
		}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "alarm",
			Name:      "reminders_total",
			Help:      "Review reminder events emitted.",
		}),
		armedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "alarm",
			Name:      "next_fire_timestamp_seconds",
			Help:      "Unix time the alarm is armed for; 0 when idle.",
		}),
	}
}

// Collectors exposes the scheduler's metrics for registration.
func (s *Scheduler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.reschedules, s.fires, s.reminders, s.armedAt}
}

// Start derives the first alarm. With RemindOnStart it first reminds users
// about anything already due. ctx is used for work done when the timer fires
// and should live as long as the scheduler. A failed first query is logged
// and retried on a timer rather than returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.baseCtx = ctx
	s.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Info("starting review alarm",
		slog.Duration("min_delay", s.config.MinDelay),
		slog.Bool("remind_on_start", s.config.RemindOnStart))

	if s.config.RemindOnStart {
		if err := s.remind(ctx); err != nil {
			log.Error("start-up reminder failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Reschedule(ctx); err != nil {
		log.Warn("initial review alarm not derived; retry armed", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop disarms the timer and waits for an in-progress fire to finish. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.disarmLocked()
	s.mu.Unlock()

	s.inFlight.Wait()
	s.logger.Info("review alarm stopped")
}

// NextFire reports when the alarm will go off, if it is armed.
func (s *Scheduler) NextFire() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFire, s.timer != nil
}

// Reschedule replaces whatever alarm is armed with one for the earliest
// upcoming review, or leaves none armed when nothing is scheduled. When the
// query fails an armed timer is kept; with none armed a retry is armed
// instead.
func (s *Scheduler) Reschedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rescheduleLocked(ctx, false)
}

// rescheduleLocked does the work of Reschedule. remindOnRetry decides whether
// a retry armed here also reminds, which is needed after a fire so reviews
// falling due during the outage are not skipped. s.mu must be held.
func (s *Scheduler) rescheduleLocked(ctx context.Context, remindOnRetry bool) error {
	if s.stopped {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	s.reschedules.Inc()

	now := s.config.Clock()
	next, err := s.items.NextReviewAfter(ctx, now)
	if err != nil {
		log.Error("failed to find next review time", slog.String("error", err.Error()))
		if s.timer == nil {
			s.armRetryLocked(log, remindOnRetry)
		}
		return fmt.Errorf("reschedule review alarm: %w", err)
	}
	s.failures = 0

	s.disarmLocked()
	if next == nil {
		log.Debug("no upcoming reviews; alarm idle")
		return nil
	}

	delay := next.Sub(now)
	if delay < s.config.MinDelay {
		delay = s.config.MinDelay
	}
	gen := s.generation
	s.nextFire = now.Add(delay)
	s.timer = time.AfterFunc(delay, func() { s.fire(gen, true) })
	s.armedAt.Set(float64(s.nextFire.Unix()))

	log.Debug("review alarm armed",
		slog.Time("next_review_at", *next),
		slog.Duration("delay", delay))
	return nil
}

// disarmLocked stops the current timer and invalidates any fire already in
// flight for it. s.mu must be held.
func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	s.nextFire = time.Time{}
	s.armedAt.Set(0)
}

// armRetryLocked arms a timer that re-runs the alarm after a backoff.
// s.mu must be held.
func (s *Scheduler) armRetryLocked(log *slog.Logger, remind bool) {
	delay := s.config.RetryDelay
	for i := 0; i < s.failures && delay < s.config.MaxRetryDelay; i++ {
		delay *= 2
	}
	delay = min(delay, s.config.MaxRetryDelay)
	s.failures++

	s.disarmLocked()
	gen := s.generation
	s.nextFire = s.config.Clock().Add(delay)
	s.timer = time.AfterFunc(delay, func() { s.fire(gen, remind) })
	s.armedAt.Set(float64(s.nextFire.Unix()))

	log.Warn("review alarm retry armed",
		slog.Duration("retry_in", delay),
		slog.Int("failures", s.failures))
}

func (s *Scheduler) fire(gen uint64, remind bool) {
	s.mu.Lock()
	if s.stopped || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.nextFire = time.Time{}
	s.armedAt.Set(0)
	s.inFlight.Add(1)
	ctx := s.baseCtx
	s.mu.Unlock()
	defer s.inFlight.Done()

	log := logger.FromContextOrDefault(ctx, s.logger)
	if remind {
		s.fires.Inc()
		if err := s.remind(ctx); err != nil {
			log.Error("review reminder failed", slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rescheduleLocked(ctx, remind); err != nil {
		log.Error("failed to re-arm review alarm", slog.String("error", err.Error()))
	}
}

// remind emits one review reminder per user with due items.
func (s *Scheduler) remind(ctx context.Context) error {
	now := s.config.Clock().UTC()
	counts, err := s.items.CountDueByUser(ctx, now)
	if err != nil {
		return fmt.Errorf("count due items: %w", err)
	}

	users := make([]uuid.UUID, 0, len(counts))
	for userID, n := range counts {
		if n > 0 {
			users = append(users, userID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return bytes.Compare(users[i][:], users[j][:]) < 0 })

	log := logger.FromContextOrDefault(ctx, s.logger)
	var firstErr error
	for _, userID := range users {
		err := events.Emit(ctx, s.emitter, events.TypeReviewReminder, events.ReviewReminderPayload{
			UserID:   userID,
			DueCount: counts[userID],
			DueAt:    now,
		})
		if err != nil {
			log.Error("failed to emit review reminder",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.reminders.Inc()
	}
	log.Info("review alarm fired", slog.Int("users_due", len(users)))
	return firstErr
}

// HandleEvent re-derives the alarm on items_changed events and ignores all
// other types.
func (s *Scheduler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeItemsChanged {
		return nil
	}
	return s.Reschedule(ctx)
}
