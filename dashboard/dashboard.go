// Package dashboard aggregates settled-order metrics for the admin
// overview: revenue, order count, customer count and catalog size, each
// with a month-over-month trend.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"
)

// StatsStore is the aggregation slice of the order store. A qualifying
// order has paymentstatus success and was not cancelled afterwards.
type StatsStore interface {
	SettledRevenue(ctx context.Context, start, end *time.Time) (float64, error)
	SettledOrderCount(ctx context.Context, start, end *time.Time) (int64, error)
	SettledCustomerCount(ctx context.Context, start, end *time.Time) (int64, error)
}

type ProductCounter interface {
	CountProducts(ctx context.Context, start, end *time.Time) (int64, error)
}

// Cache is satisfied by rdx.Cache; a nil-connection cache degrades to
// recomputing every request.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Metric pairs an all-time value with its calendar-month trend.
type Metric struct {
	Value            float64 `json:"value"`
	PercentageChange float64 `json:"percentageChange"`
	ChangeType       string  `json:"changeType"`
}

type Stats struct {
	TotalRevenue   Metric    `json:"totalRevenue"`
	TotalOrders    Metric    `json:"totalOrders"`
	TotalCustomers Metric    `json:"totalCustomers"`
	TotalProducts  Metric    `json:"totalProducts"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

const (
	cacheKey = "dashboard:stats"
	cacheTTL = 60 * time.Second
)

type Service struct {
	orders   StatsStore
	products ProductCounter
	cache    Cache
	now      func() time.Time
}

func NewService(orders StatsStore, products ProductCounter, cache Cache) *Service {
	return &Service{orders: orders, products: products, cache: cache, now: time.Now}
}

// Stats computes the dashboard aggregate, served from cache for up to a
// minute.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, cacheKey); ok {
			var cached Stats
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.cache.Set(ctx, cacheKey, string(raw), cacheTTL)
		} else {
			log.Printf("dashboard: caching stats: %v", err)
		}
	}
	return stats, nil
}

func (s *Service) compute(ctx context.Context) (*Stats, error) {
	now := s.now()
	curStart, curEnd := monthWindow(now, 0)
	prevStart, prevEnd := monthWindow(now, -1)

	stats := &Stats{GeneratedAt: now}

	allRevenue, err := s.orders.SettledRevenue(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	curRevenue, err := s.orders.SettledRevenue(ctx, &curStart, &curEnd)
	if err != nil {
		return nil, err
	}
	prevRevenue, err := s.orders.SettledRevenue(ctx, &prevStart, &prevEnd)
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = metric(allRevenue, curRevenue, prevRevenue)

	allOrders, err := s.orders.SettledOrderCount(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	curOrders, err := s.orders.SettledOrderCount(ctx, &curStart, &curEnd)
	if err != nil {
		return nil, err
	}
	prevOrders, err := s.orders.SettledOrderCount(ctx, &prevStart, &prevEnd)
	if err != nil {
		return nil, err
	}
	stats.TotalOrders = metric(float64(allOrders), float64(curOrders), float64(prevOrders))

	allCustomers, err := s.orders.SettledCustomerCount(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	curCustomers, err := s.orders.SettledCustomerCount(ctx, &curStart, &curEnd)
	if err != nil {
		return nil, err
	}
	prevCustomers, err := s.orders.SettledCustomerCount(ctx, &prevStart, &prevEnd)
	if err != nil {
		return nil, err
	}
	stats.TotalCustomers = metric(float64(allCustomers), float64(curCustomers), float64(prevCustomers))

	allProducts, err := s.products.CountProducts(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	curProducts, err := s.products.CountProducts(ctx, &curStart, &curEnd)
	if err != nil {
		return nil, err
	}
	prevProducts, err := s.products.CountProducts(ctx, &prevStart, &prevEnd)
	if err != nil {
		return nil, err
	}
	stats.TotalProducts = metric(float64(allProducts), float64(curProducts), float64(prevProducts))

	return stats, nil
}

func metric(allTime, current, previous float64) Metric {
	change, changeType := percentageChange(current, previous)
	return Metric{Value: allTime, PercentageChange: change, ChangeType: changeType}
}

// percentageChange compares this month against last month, rounded to two
// decimals. A month that starts from zero reads as a flat 100% increase.
func percentageChange(current, previous float64) (float64, string) {
	if previous == 0 {
		if current > 0 {
			return 100, "increase"
		}
		return 0, "no-change"
	}
	change := math.Round((current-previous)/previous*100*100) / 100
	switch {
	case change > 0:
		return change, "increase"
	case change < 0:
		return change, "decrease"
	}
	return 0, "no-change"
}

// monthWindow bounds the calendar month offset months from now, inclusive
// of the final millisecond.
func monthWindow(now time.Time, offset int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, offset, 0)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
