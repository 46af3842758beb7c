package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type noopMetrics struct{}

func (noopMetrics) RecordTickStored(string, string) {}
func (noopMetrics) RecordError(string) {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64) {}
func (noopMetrics) RecordVenuePositions(string, int) {}
func (noopMetrics) RecordCycle(string, float64) {}
func (noopMetrics) RecordEquity(float64) {}

type fakeAdapter struct {
	name      string
	positions []models.NormalizedPosition
	err       error
	delay     time.Duration
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.positions, f.err
}

type memSnapshotStore struct {
	snapshots []*models.PortfolioSnapshot
	analytics []*models.AnalyticsSnapshot
	nextID    uint
}

func (m *memSnapshotStore) Init(context.Context) error { return nil }
func (m *memSnapshotStore) Close() error               { return nil }

func (m *memSnapshotStore) SaveSnapshot(_ context.Context, s *models.PortfolioSnapshot) error {
	m.nextID++
	s.ID = m.nextID
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *memSnapshotStore) LatestSnapshot(context.Context) (*models.PortfolioSnapshot, error) {
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	return m.snapshots[len(m.snapshots)-1], nil
}

func (m *memSnapshotStore) PreviousSnapshot(_ context.Context, beforeID uint) (*models.PortfolioSnapshot, error) {
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].ID < beforeID {
			return m.snapshots[i], nil
		}
	}
	return nil, nil
}

func (m *memSnapshotStore) EquityHistory(_ context.Context, limit int) ([]float64, error) {
	start := 0
	if len(m.snapshots) > limit {
		start = len(m.snapshots) - limit
	}
	out := make([]float64, 0, limit)
	for _, s := range m.snapshots[start:] {
		out = append(out, s.TotalEquityUSD)
	}
	return out, nil
}

func (m *memSnapshotStore) SaveAnalytics(_ context.Context, a *models.AnalyticsSnapshot) error {
	m.analytics = append(m.analytics, a)
	return nil
}

func (m *memSnapshotStore) LatestAnalytics(context.Context) (*models.AnalyticsSnapshot, error) {
	if len(m.analytics) == 0 {
		return nil, nil
	}
	return m.analytics[len(m.analytics)-1], nil
}

func lev(v float64) *float64 { return &v }

func TestAggregateMergesVenues(t *testing.T) {
	adapters := []drepo.VenueAdapter{
		&fakeAdapter{name: "binance", positions: []models.NormalizedPosition{
			{Venue: "binance", Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 95000, MarkPrice: 96000, UnrealizedPnL: 500, Leverage: lev(10)},
		}},
		&fakeAdapter{name: "hyperliquid", positions: []models.NormalizedPosition{
			{Venue: "hyperliquid", Symbol: "ETH-USD", Side: models.SideShort, Size: 10, EntryPrice: 3000, MarkPrice: 2900, UnrealizedPnL: 1000},
		}},
	}
	store := &memSnapshotStore{}
	agg := NewSnapshotAggregator(adapters, store, noopMetrics{}, 100_000, time.Second, testLogger(t))

	snap, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if snap.ID == 0 {
		t.Fatalf("snapshot must carry the store-assigned id")
	}
	if len(snap.Positions) != 2 {
		t.Fatalf("positions: want 2, got %d", len(snap.Positions))
	}
	if math.Abs(snap.TotalUnrealizedPnLUSD-1500) > 1e-9 {
		t.Fatalf("total pnl: want 1500, got %v", snap.TotalUnrealizedPnLUSD)
	}
	if math.Abs(snap.TotalEquityUSD-101500) > 1e-9 {
		t.Fatalf("equity: want 101500, got %v", snap.TotalEquityUSD)
	}
	// Margin only for positions reporting leverage: 0.5*95000/10 = 4750.
	if math.Abs(snap.TotalMarginUsedUSD-4750) > 1e-9 {
		t.Fatalf("margin: want 4750, got %v", snap.TotalMarginUsedUSD)
	}
	// Asset breakdown nets signed sizes per base asset.
	if got := snap.AssetBreakdown["BTC"]; math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("BTC breakdown: want 0.5, got %v", got)
	}
	if got := snap.AssetBreakdown["ETH"]; math.Abs(got-(-10)) > 1e-12 {
		t.Fatalf("ETH breakdown: want -10, got %v", got)
	}
}

func TestAggregateDegradesOnVenueFailure(t *testing.T) {
	adapters := []drepo.VenueAdapter{
		&fakeAdapter{name: "binance", positions: []models.NormalizedPosition{
			{Venue: "binance", Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 90000, MarkPrice: 91000, UnrealizedPnL: 1000},
		}},
		&fakeAdapter{name: "okx", err: fmt.Errorf("503 service unavailable")},
	}
	store := &memSnapshotStore{}
	agg := NewSnapshotAggregator(adapters, store, noopMetrics{}, 100_000, time.Second, testLogger(t))

	snap, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("one failing venue must not fail the cycle: %v", err)
	}
	if len(snap.Positions) != 1 {
		t.Fatalf("want 1 position from the healthy venue, got %d", len(snap.Positions))
	}
}

func TestAggregateVenueTimeout(t *testing.T) {
	adapters := []drepo.VenueAdapter{
		&fakeAdapter{name: "slow", delay: 500 * time.Millisecond, positions: []models.NormalizedPosition{
			{Venue: "slow", Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 1, MarkPrice: 1},
		}},
	}
	store := &memSnapshotStore{}
	agg := NewSnapshotAggregator(adapters, store, noopMetrics{}, 100_000, 50*time.Millisecond, testLogger(t))

	snap, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(snap.Positions) != 0 {
		t.Fatalf("timed-out venue must contribute nothing, got %d positions", len(snap.Positions))
	}
	if snap.TotalEquityUSD != 100_000 {
		t.Fatalf("empty portfolio equity must equal starting cash, got %v", snap.TotalEquityUSD)
	}
}

func TestAggregateOrderIndependentTotals(t *testing.T) {
	a := &fakeAdapter{name: "a", positions: []models.NormalizedPosition{
		{Venue: "a", Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 90000, MarkPrice: 92000, UnrealizedPnL: 2000},
	}}
	b := &fakeAdapter{name: "b", positions: []models.NormalizedPosition{
		{Venue: "b", Symbol: "ETH-USD", Side: models.SideShort, Size: 5, EntryPrice: 3100, MarkPrice: 3000, UnrealizedPnL: 500},
	}}

	s1 := &memSnapshotStore{}
	s2 := &memSnapshotStore{}
	agg1 := NewSnapshotAggregator([]drepo.VenueAdapter{a, b}, s1, noopMetrics{}, 100_000, time.Second, testLogger(t))
	agg2 := NewSnapshotAggregator([]drepo.VenueAdapter{b, a}, s2, noopMetrics{}, 100_000, time.Second, testLogger(t))

	snap1, err := agg1.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate 1: %v", err)
	}
	snap2, err := agg2.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate 2: %v", err)
	}

	if math.Abs(snap1.TotalEquityUSD-snap2.TotalEquityUSD) > 1e-9 ||
		math.Abs(snap1.TotalUnrealizedPnLUSD-snap2.TotalUnrealizedPnLUSD) > 1e-9 ||
		math.Abs(snap1.TotalMarginUsedUSD-snap2.TotalMarginUsedUSD) > 1e-9 {
		t.Fatalf("totals differ by adapter order: %+v vs %+v", snap1, snap2)
	}
}
