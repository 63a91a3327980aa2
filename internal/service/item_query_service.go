package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	historyLimit    = 100
)

// ListItemsRequest narrows ItemQueryService.List. Zero values do not filter.
type ListItemsRequest struct {
	NotebookID *uuid.UUID
	// Query is matched against title and content, ignoring case.
	Query   string
	Status  domain.ItemStatus
	Deleted bool
	Limit   int
	Offset  int
}

// ItemQueryService answers read-only questions about memory items.
type ItemQueryService interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error)
	List(ctx context.Context, userID uuid.UUID, req ListItemsRequest) ([]*domain.MemoryItem, error)
	// Due returns reviewing items whose review time has passed, most overdue first.
	Due(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MemoryItem, error)
	// History returns the item's review log, newest first.
	History(ctx context.Context, userID, id uuid.UUID) ([]*domain.ReviewLog, error)
}

type itemQueryService struct {
	items  store.ItemStore
	logs   store.ReviewLogStore
	now    func() time.Time
	logger *slog.Logger
}

// NewItemQueryService creates an ItemQueryService.
func NewItemQueryService(items store.ItemStore, logs store.ReviewLogStore, logger *slog.Logger) ItemQueryService {
	if items == nil || logs == nil {
		panic("item query service requires item and review log stores")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &itemQueryService{
		items:  items,
		logs:   logs,
		now:    time.Now,
		logger: logger.With("component", "item_query_service"),
	}
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}

func (s *itemQueryService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	item, err := s.items.GetByID(ctx, userID, id)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "item", "get", err)
	}
	return item, nil
}

func (s *itemQueryService) List(ctx context.Context, userID uuid.UUID, req ListItemsRequest) ([]*domain.MemoryItem, error) {
	filter := store.ItemFilter{
		NotebookID: req.NotebookID,
		Query:      req.Query,
		Deleted:    req.Deleted,
		Limit:      pageSize(req.Limit),
		Offset:     max(req.Offset, 0),
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, invalid(domain.ErrInvalidStatus)
		}
		filter.Statuses = []domain.ItemStatus{req.Status}
	}

	items, err := s.items.List(ctx, userID, filter)
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "item", "list", err)
	}
	return items, nil
}

func (s *itemQueryService) Due(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MemoryItem, error) {
	items, err := s.items.ListDue(ctx, userID, s.now().UTC(), pageSize(limit))
	if err != nil {
		return nil, wrapError(logger.FromContextOrDefault(ctx, s.logger), "item", "due", err)
	}
	return items, nil
}

func (s *itemQueryService) History(ctx context.Context, userID, id uuid.UUID) ([]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.items.GetByID(ctx, userID, id); err != nil {
		return nil, wrapError(log, "item", "history", err)
	}
	logs, err := s.logs.ListByItem(ctx, userID, id, historyLimit)
	if err != nil {
		return nil, wrapError(log, "item", "history", err)
	}
	return logs, nil
}
