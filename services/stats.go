package services

import (
	"context"
	"fmt"
	"shopease/models"

	"golang.org/x/sync/errgroup"
)

// Counter counts the documents of one collection
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// OrderAggregates are the order queries behind the dashboard
type OrderAggregates interface {
	Counter
	MonthlyCounts(ctx context.Context) ([]models.MonthlyCount, error)
}

// RevenueSource sums recorded payments
type RevenueSource interface {
	Revenue(ctx context.Context) (float64, error)
}

// StatsService builds the admin dashboard summary
type StatsService struct {
	users    Counter
	products Counter
	orders   OrderAggregates
	payments RevenueSource
}

// NewStatsService creates a StatsService
func NewStatsService(users, products Counter, orders OrderAggregates, payments RevenueSource) *StatsService {
	return &StatsService{users: users, products: products, orders: orders, payments: payments}
}

// Stats runs the aggregations concurrently and fails if any of them fails
func (s *StatsService) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		out.Users, err = s.users.Count(ctx)
		return wrapIf(err, "count users")
	})
	g.Go(func() (err error) {
		out.Products, err = s.products.Count(ctx)
		return wrapIf(err, "count products")
	})
	g.Go(func() (err error) {
		out.Orders, err = s.orders.Count(ctx)
		return wrapIf(err, "count orders")
	})
	g.Go(func() (err error) {
		out.Revenue, err = s.payments.Revenue(ctx)
		return wrapIf(err, "sum revenue")
	})
	g.Go(func() (err error) {
		out.MonthlyOrders, err = s.orders.MonthlyCounts(ctx)
		return wrapIf(err, "monthly orders")
	})

	if err := g.Wait(); err != nil {
		return models.Stats{}, err
	}
	if out.MonthlyOrders == nil {
		out.MonthlyOrders = []models.MonthlyCount{}
	}
	return out, nil
}

func wrapIf(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
