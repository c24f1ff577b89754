package dashboard

import (
	"context"
	"sync"

	"koubyte-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentOrders = 5

var (
	appointmentStatuses = []string{"pending", "confirmed", "completed", "cancelled"}
	paymentStatuses     = []string{"unpaid", "pending", "paid", "refunded"}
)

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func zeroed(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}

// Stats runs every metric concurrently. A failing metric keeps its zero
// value and is named in Degraded; Stats itself only fails when the
// request context is gone.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	log := logger.Scoped(ctx, "service", "Stats")

	stats := &Stats{
		AppointmentsByStatus:  zeroed(appointmentStatuses),
		OrdersByPaymentStatus: zeroed(paymentStatuses),
		TotalRevenue:          decimal.Zero,
		RecentOrders:          []RecentOrder{},
		Degraded:              []string{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	run := func(metric string, fn func(ctx context.Context) (func(), error)) {
		g.Go(func() error {
			apply, err := fn(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("metric unavailable", zap.String("metric", metric), zap.Error(err))
				stats.Degraded = append(stats.Degraded, metric)
				return nil
			}
			apply()
			return nil
		})
	}

	byStatus := func(metric string, into map[string]int) {
		run(metric, func(ctx context.Context) (func(), error) {
			counts, err := s.repo.CountByStatus(ctx, metric)
			return func() {
				for k, n := range counts {
					into[k] = n
				}
			}, err
		})
	}
	count := func(metric string, into *int) {
		run(metric, func(ctx context.Context) (func(), error) {
			n, err := s.repo.Count(ctx, metric)
			return func() { *into = n }, err
		})
	}

	byStatus(MetricAppointments, stats.AppointmentsByStatus)
	byStatus(MetricOrders, stats.OrdersByPaymentStatus)
	count(MetricQuotes, &stats.PendingQuotes)
	count(MetricReviews, &stats.PendingReviews)
	count(MetricMessages, &stats.UnreadMessages)
	count(MetricConversations, &stats.OpenConversations)
	count(MetricUsers, &stats.TotalUsers)

	run(MetricRevenue, func(ctx context.Context) (func(), error) {
		total, err := s.repo.Revenue(ctx)
		return func() { stats.TotalRevenue = total }, err
	})
	run(MetricRecentOrders, func(ctx context.Context) (func(), error) {
		orders, err := s.repo.RecentOrders(ctx, recentOrders)
		return func() {
			if orders != nil {
				stats.RecentOrders = orders
			}
		}, err
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(stats.Degraded) > 0 {
		log.Info("dashboard served degraded", zap.Strings("degraded", stats.Degraded))
	}
	return stats, nil
}
