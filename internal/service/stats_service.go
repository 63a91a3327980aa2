package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

const (
	weekDays = 7
	// DayLabelLayout labels days in the weekly chart.
	DayLabelLayout = "01-02"
	// HomeItemLimit caps the items listed in the home view. Counts and
	// progress are computed over all items regardless.
	HomeItemLimit = 1000
)

// DayCount is the number of reviews done on one calendar day.
type DayCount struct {
	Date  string `json:"date"`  // domain.DayLayout
	Label string `json:"label"` // DayLabelLayout
	Count int    `json:"count"`
}

// WeeklyStats covers today and the six days before it, oldest first.
type WeeklyStats struct {
	Days  []DayCount `json:"days"`
	Total int        `json:"total"`
}

// DailyProgress compares today's reviews with everything due by the end of
// the day.
type DailyProgress struct {
	ReviewedToday int     `json:"reviewed_today"`
	TotalDueToday int     `json:"total_due_today"`
	Ratio         float64 `json:"ratio"`
	AllDone       bool    `json:"all_done"`
}

// HomeView splits the user's live items by when they are due. Overdue items
// were due before today began; Today items fall due before it ends. When the
// user has more than HomeItemLimit items the lists are cut and Truncated is
// set; OverdueCount and TodayCount always cover every item.
type HomeView struct {
	Overdue      []*domain.MemoryItem `json:"overdue"`
	Today        []*domain.MemoryItem `json:"today"`
	Upcoming     []*domain.MemoryItem `json:"upcoming"`
	Paused       []*domain.MemoryItem `json:"paused"`
	Completed    []*domain.MemoryItem `json:"completed"`
	OverdueCount int                  `json:"overdue_count"`
	TodayCount   int                  `json:"today_count"`
	Truncated    bool                 `json:"truncated"`
	Progress     DailyProgress        `json:"progress"`
}

// HomeRequest narrows the home view like the item list does.
type HomeRequest struct {
	NotebookID *uuid.UUID
	Query      string
}

// StatsService computes review statistics. Day boundaries are taken in the
// configured location.
type StatsService interface {
	Weekly(ctx context.Context, userID uuid.UUID) (*WeeklyStats, error)
	// ReviewedToday counts reviews since local midnight.
	ReviewedToday(ctx context.Context, userID uuid.UUID) (int, error)
	Home(ctx context.Context, userID uuid.UUID, req HomeRequest) (*HomeView, error)
}

type statsService struct {
	items  store.ItemStore
	logs   store.ReviewLogStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewStatsService creates a StatsService. A nil loc means UTC.
func NewStatsService(items store.ItemStore, logs store.ReviewLogStore, loc *time.Location, logger *slog.Logger) StatsService {
	if items == nil || logs == nil {
		panic("stats service requires item and review log stores")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &statsService{
		items:  items,
		logs:   logs,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("component", "stats_service"),
	}
}

// startOfDay returns local midnight of t's day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (s *statsService) Weekly(ctx context.Context, userID uuid.UUID) (*WeeklyStats, error) {
	now := s.now()
	today := startOfDay(now, s.loc)
	from := today.AddDate(0, 0, -(weekDays - 1))
	to := today.AddDate(0, 0, 1)

	counts, err := s.logs.CountByDay(ctx, userID, from, to, s.loc)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "stats", "weekly", err)
	}

	out := &WeeklyStats{Days: make([]DayCount, 0, weekDays)}
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(domain.DayLayout)
		n := counts[key]
		out.Days = append(out.Days, DayCount{Date: key, Label: day.Format(DayLabelLayout), Count: n})
		out.Total += n
	}
	return out, nil
}

func (s *statsService) ReviewedToday(ctx context.Context, userID uuid.UUID) (int, error) {
	now := s.now()
	n, err := s.logs.Count(ctx, userID, startOfDay(now, s.loc), now.Add(time.Nanosecond))
	if err != nil {
		return 0, wrapError(logger.FromContextOrDefault(ctx, s.logger), "stats", "reviewed_today", err)
	}
	return n, nil
}

func (s *statsService) Home(ctx context.Context, userID uuid.UUID, req HomeRequest) (*HomeView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	filter := store.ItemFilter{
		NotebookID: req.NotebookID,
		Query:      req.Query,
		Limit:      HomeItemLimit + 1,
	}
	items, err := s.items.List(ctx, userID, filter)
	if err != nil {
		return nil, wrapError(log, "stats", "home", err)
	}
	reviewed, err := s.ReviewedToday(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := startOfDay(now, s.loc)
	end := start.AddDate(0, 0, 1)

	overdue, err := s.items.CountDue(ctx, userID, filter, start)
	if err != nil {
		return nil, wrapError(log, "stats", "home", err)
	}
	dueByEnd, err := s.items.CountDue(ctx, userID, filter, end)
	if err != nil {
		return nil, wrapError(log, "stats", "home", err)
	}

	view := &HomeView{
		Overdue:      []*domain.MemoryItem{},
		Today:        []*domain.MemoryItem{},
		Upcoming:     []*domain.MemoryItem{},
		Paused:       []*domain.MemoryItem{},
		Completed:    []*domain.MemoryItem{},
		OverdueCount: overdue,
		TodayCount:   dueByEnd - overdue,
	}
	if len(items) > HomeItemLimit {
		items = items[:HomeItemLimit]
		view.Truncated = true
		log.Debug("home view truncated", slog.Int("limit", HomeItemLimit))
	}
	for _, it := range items {
		switch it.Status {
		case domain.ItemStatusCompleted:
			view.Completed = append(view.Completed, it)
		case domain.ItemStatusPaused:
			view.Paused = append(view.Paused, it)
		default:
			switch {
			case it.NextReviewAt.Before(start):
				view.Overdue = append(view.Overdue, it)
			case it.NextReviewAt.Before(end):
				view.Today = append(view.Today, it)
			default:
				view.Upcoming = append(view.Upcoming, it)
			}
		}
	}

	// Items arrive ordered by next review; completed ones read best by the
	// most recent last review.
	sort.SliceStable(view.Completed, func(i, j int) bool {
		a, b := view.Completed[i].LastReviewAt, view.Completed[j].LastReviewAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})

	view.Progress = progress(reviewed, dueByEnd)
	return view, nil
}

func progress(reviewed, stillDue int) DailyProgress {
	p := DailyProgress{
		ReviewedToday: reviewed,
		TotalDueToday: reviewed + stillDue,
	}
	if p.TotalDueToday > 0 {
		p.Ratio = float64(reviewed) / float64(p.TotalDueToday)
		p.AllDone = reviewed >= p.TotalDueToday
	}
	return p
}
