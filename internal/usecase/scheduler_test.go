package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"PortPulse/internal/analytics"
	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
)

type fixedVolSource struct {
	sigma float64
}

func (f fixedVolSource) Estimate(context.Context, string) models.VolatilityEstimate {
	return models.VolatilityEstimate{Sigma: f.sigma, Confident: true, Samples: 100}
}

func newTestScheduler(t *testing.T, adapters []drepo.VenueAdapter, store drepo.SnapshotStore) *CycleScheduler {
	t.Helper()
	l := testLogger(t)
	agg := NewSnapshotAggregator(adapters, store, noopMetrics{}, 100_000, time.Second, l)
	return NewCycleScheduler(
		agg, store,
		analytics.NewExposureEngine(),
		analytics.NewRiskEngine(fixedVolSource{sigma: 0.5}, l),
		analytics.NewAttributionEngine(),
		noopMetrics{},
		time.Minute, 5*time.Second, 500,
		l,
	)
}

func TestRunCyclePersistsAnalytics(t *testing.T) {
	adapters := []drepo.VenueAdapter{
		&fakeAdapter{name: "binance", positions: []models.NormalizedPosition{
			{Venue: "binance", Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 90000, MarkPrice: 100000, UnrealizedPnL: 10000},
		}},
	}
	store := &memSnapshotStore{}
	s := newTestScheduler(t, adapters, store)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if len(store.analytics) != 1 {
		t.Fatalf("want 1 analytics record, got %d", len(store.analytics))
	}
	rec := store.analytics[0]
	if rec.SnapshotID != store.snapshots[0].ID {
		t.Fatalf("analytics must reference the cycle snapshot: %d vs %d", rec.SnapshotID, store.snapshots[0].ID)
	}
	if math.Abs(rec.GrossExposureUSD-100000) > 1e-9 {
		t.Fatalf("gross exposure: want 100000, got %v", rec.GrossExposureUSD)
	}
	// Single fresh cycle: no drawdown yet.
	if rec.RollingDrawdownPct != 0 {
		t.Fatalf("first cycle drawdown: want 0, got %v", rec.RollingDrawdownPct)
	}
	if rec.Var951DPct <= 0 {
		t.Fatalf("VaR must be positive with a confident sigma, got %v", rec.Var951DPct)
	}
}

func TestRunCycleAttributionAgainstPrevious(t *testing.T) {
	adapter := &fakeAdapter{name: "binance", positions: []models.NormalizedPosition{
		{Venue: "binance", Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 90000, MarkPrice: 91000, UnrealizedPnL: 1000},
	}}
	store := &memSnapshotStore{}
	s := newTestScheduler(t, []drepo.VenueAdapter{adapter}, store)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	// First cycle has no previous snapshot so the breakdown is empty.
	if len(store.analytics[0].AttributionBreakdown) != 0 {
		t.Fatalf("first cycle breakdown must be empty, got %v", store.analytics[0].AttributionBreakdown)
	}

	adapter.positions[0].MarkPrice = 93000
	adapter.positions[0].UnrealizedPnL = 3000
	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	breakdown := store.analytics[1].AttributionBreakdown
	if got := breakdown["BTCUSDT"]; math.Abs(got-2000) > 1e-9 {
		t.Fatalf("attribution: want BTCUSDT +2000, got %v", breakdown)
	}
}

type failingSaveStore struct {
	memSnapshotStore
}

func (f *failingSaveStore) SaveSnapshot(context.Context, *models.PortfolioSnapshot) error {
	return fmt.Errorf("disk full")
}

func TestRunCycleStoreFailure(t *testing.T) {
	adapters := []drepo.VenueAdapter{
		&fakeAdapter{name: "binance"},
	}
	store := &failingSaveStore{}
	s := newTestScheduler(t, adapters, store)

	if err := s.RunCycle(context.Background()); err == nil {
		t.Fatalf("save failure must fail the whole cycle")
	}
	if len(store.analytics) != 0 {
		t.Fatalf("failed cycle must not persist analytics")
	}
}
