package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CountByStatus(ctx context.Context, metric string) (map[string]int, error) {
	args := m.Called(ctx, metric)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, metric string) (int, error) {
	args := m.Called(ctx, metric)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRepository) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RecentOrder), args.Error(1)
}

func TestService_Stats(t *testing.T) {
	anything := mock.Anything

	t.Run("All metrics", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CountByStatus", anything, MetricAppointments).Return(map[string]int{"pending": 2}, nil)
		repo.On("CountByStatus", anything, MetricOrders).Return(map[string]int{"paid": 3, "unpaid": 1}, nil)
		repo.On("Count", anything, MetricQuotes).Return(4, nil)
		repo.On("Count", anything, MetricReviews).Return(1, nil)
		repo.On("Count", anything, MetricMessages).Return(0, nil)
		repo.On("Count", anything, MetricConversations).Return(2, nil)
		repo.On("Count", anything, MetricUsers).Return(10, nil)
		repo.On("Revenue", anything).Return(decimal.RequireFromString("290.00"), nil)
		repo.On("RecentOrders", anything, recentOrders).Return([]RecentOrder{{ID: 7, OrderNumber: "KB-1"}}, nil)

		stats, err := NewService(repo).Stats(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, stats.AppointmentsByStatus["pending"])
		assert.Equal(t, 0, stats.AppointmentsByStatus["cancelled"])
		assert.Equal(t, 3, stats.OrdersByPaymentStatus["paid"])
		assert.Equal(t, 0, stats.OrdersByPaymentStatus["refunded"])
		assert.Equal(t, "290", stats.TotalRevenue.String())
		assert.Equal(t, 4, stats.PendingQuotes)
		assert.Equal(t, 10, stats.TotalUsers)
		assert.Len(t, stats.RecentOrders, 1)
		assert.Empty(t, stats.Degraded)
	})

	t.Run("Failures fall back to zero", func(t *testing.T) {
		repo := new(MockRepository)
		boom := errors.New("db down")
		repo.On("CountByStatus", anything, MetricAppointments).Return(nil, boom)
		repo.On("CountByStatus", anything, MetricOrders).Return(map[string]int{"paid": 1}, nil)
		repo.On("Count", anything, MetricUsers).Return(0, boom)
		repo.On("Count", anything, mock.AnythingOfType("string")).Return(1, nil)
		repo.On("Revenue", anything).Return(decimal.Zero, boom)
		repo.On("RecentOrders", anything, recentOrders).Return(nil, boom)

		stats, err := NewService(repo).Stats(context.Background())
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{MetricAppointments, MetricUsers, MetricRevenue, MetricRecentOrders}, stats.Degraded)
		assert.Equal(t, 0, stats.AppointmentsByStatus["pending"])
		assert.Equal(t, 1, stats.OrdersByPaymentStatus["paid"])
		assert.True(t, stats.TotalRevenue.IsZero())
		assert.Equal(t, 0, stats.TotalUsers)
		assert.Equal(t, 1, stats.PendingQuotes)
		assert.NotNil(t, stats.RecentOrders)
	})

	t.Run("Cancelled request", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CountByStatus", anything, anything).Return(nil, context.Canceled)
		repo.On("Count", anything, anything).Return(0, context.Canceled)
		repo.On("Revenue", anything).Return(decimal.Zero, context.Canceled)
		repo.On("RecentOrders", anything, anything).Return(nil, context.Canceled)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewService(repo).Stats(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
