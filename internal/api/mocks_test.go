package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/review"
	"github.com/stretchr/testify/mock"
)

type mockUserService struct {
	mock.Mock
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) UpdateUserEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	return m.Called(ctx, userID, newEmail).Error(0)
}

func (m *mockUserService) UpdateUserPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	return m.Called(ctx, userID, newPassword).Error(0)
}

func (m *mockUserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserService) SeedDefaults(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type mockReviewService struct {
	mock.Mock
}

var _ review.Service = (*mockReviewService)(nil)

func (m *mockReviewService) item(args mock.Arguments) (*domain.MemoryItem, error) {
	item, _ := args.Get(0).(*domain.MemoryItem)
	return item, args.Error(1)
}

func (m *mockReviewService) AddItem(ctx context.Context, userID uuid.UUID, req review.AddItemRequest) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, req))
}

func (m *mockReviewService) UpdateItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
	req review.UpdateItemRequest,
) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID, req))
}

func (m *mockReviewService) MarkRemembered(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID))
}

func (m *mockReviewService) MarkForgot(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID))
}

func (m *mockReviewService) Pause(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID))
}

func (m *mockReviewService) Resume(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID))
}

func (m *mockReviewService) Postpone(ctx context.Context, userID, itemID uuid.UUID, minutes int) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID, minutes))
}

func (m *mockReviewService) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockReviewService) Restore(ctx context.Context, userID, itemID uuid.UUID) (*domain.MemoryItem, error) {
	return m.item(m.Called(ctx, userID, itemID))
}

type mockItemQueryService struct {
	mock.Mock
}

var _ service.ItemQueryService = (*mockItemQueryService)(nil)

func (m *mockItemQueryService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.MemoryItem, error) {
	args := m.Called(ctx, userID, id)
	item, _ := args.Get(0).(*domain.MemoryItem)
	return item, args.Error(1)
}

func (m *mockItemQueryService) List(
	ctx context.Context,
	userID uuid.UUID,
	req service.ListItemsRequest,
) ([]*domain.MemoryItem, error) {
	args := m.Called(ctx, userID, req)
	items, _ := args.Get(0).([]*domain.MemoryItem)
	return items, args.Error(1)
}

func (m *mockItemQueryService) Due(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MemoryItem, error) {
	args := m.Called(ctx, userID, limit)
	items, _ := args.Get(0).([]*domain.MemoryItem)
	return items, args.Error(1)
}

func (m *mockItemQueryService) History(ctx context.Context, userID, id uuid.UUID) ([]*domain.ReviewLog, error) {
	args := m.Called(ctx, userID, id)
	logs, _ := args.Get(0).([]*domain.ReviewLog)
	return logs, args.Error(1)
}

type mockStatsService struct {
	mock.Mock
}

var _ service.StatsService = (*mockStatsService)(nil)

func (m *mockStatsService) Weekly(ctx context.Context, userID uuid.UUID) (*service.WeeklyStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*service.WeeklyStats)
	return stats, args.Error(1)
}

func (m *mockStatsService) ReviewedToday(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockStatsService) Home(ctx context.Context, userID uuid.UUID, req service.HomeRequest) (*service.HomeView, error) {
	args := m.Called(ctx, userID, req)
	home, _ := args.Get(0).(*service.HomeView)
	return home, args.Error(1)
}
