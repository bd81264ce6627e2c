package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStats struct {
	calls   int
	revenue map[string]float64
	orders  map[string]int64
	users   map[string]int64
}

// windowKey buckets a query as all-time, current month or previous month
// relative to the fixed test clock.
func windowKey(start *time.Time) string {
	if start == nil {
		return "all"
	}
	if start.Month() == testNow.Month() {
		return "cur"
	}
	return "prev"
}

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func (s *stubStats) SettledRevenue(_ context.Context, start, _ *time.Time) (float64, error) {
	s.calls++
	return s.revenue[windowKey(start)], nil
}

func (s *stubStats) SettledOrderCount(_ context.Context, start, _ *time.Time) (int64, error) {
	s.calls++
	return s.orders[windowKey(start)], nil
}

func (s *stubStats) SettledCustomerCount(_ context.Context, start, _ *time.Time) (int64, error) {
	s.calls++
	return s.users[windowKey(start)], nil
}

type stubProducts struct{}

func (stubProducts) CountProducts(_ context.Context, _, _ *time.Time) (int64, error) {
	return 42, nil
}

type memCache struct {
	entries map[string]string
}

func (c *memCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.entries[key] = value
}

func newTestService(stats *stubStats, cache Cache) *Service {
	svc := NewService(stats, stubProducts{}, cache)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestPercentageChange(t *testing.T) {
	cases := []struct {
		name       string
		current    float64
		previous   float64
		wantChange float64
		wantType   string
	}{
		{"growth", 150, 100, 50, "increase"},
		{"decline", 50, 100, -50, "decrease"},
		{"flat", 100, 100, 0, "no-change"},
		{"from zero", 10, 0, 100, "increase"},
		{"both zero", 0, 0, 0, "no-change"},
		{"rounded to two decimals", 100, 3, 3233.33, "increase"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			change, changeType := percentageChange(tc.current, tc.previous)
			assert.Equal(t, tc.wantChange, change)
			assert.Equal(t, tc.wantType, changeType)
		})
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := monthWindow(testNow, 0)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.March, 31, 23, 59, 59, 999000000, time.UTC), end)

	prevStart, prevEnd := monthWindow(testNow, -1)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), prevStart)
	assert.True(t, prevEnd.Before(start))
}

func TestStats(t *testing.T) {
	stats := &stubStats{
		revenue: map[string]float64{"all": 10000, "cur": 1500, "prev": 1000},
		orders:  map[string]int64{"all": 200, "cur": 20, "prev": 40},
		users:   map[string]int64{"all": 90, "cur": 5, "prev": 5},
	}
	svc := newTestService(stats, nil)

	got, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(10000), got.TotalRevenue.Value)
	assert.Equal(t, float64(50), got.TotalRevenue.PercentageChange)
	assert.Equal(t, "increase", got.TotalRevenue.ChangeType)

	assert.Equal(t, float64(200), got.TotalOrders.Value)
	assert.Equal(t, float64(-50), got.TotalOrders.PercentageChange)
	assert.Equal(t, "decrease", got.TotalOrders.ChangeType)

	assert.Equal(t, "no-change", got.TotalCustomers.ChangeType)
	assert.Equal(t, float64(42), got.TotalProducts.Value)
}

func TestStatsServedFromCache(t *testing.T) {
	stats := &stubStats{
		revenue: map[string]float64{"all": 10000, "cur": 1500, "prev": 1000},
		orders:  map[string]int64{},
		users:   map[string]int64{},
	}
	cache := &memCache{entries: make(map[string]string)}
	svc := newTestService(stats, cache)

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)
	computeCalls := stats.calls
	require.Greater(t, computeCalls, 0)

	second, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, computeCalls, stats.calls, "second read must hit the cache")
	assert.Equal(t, first.TotalRevenue, second.TotalRevenue)
}
