package analytics

import (
	"math"
	"math/rand"
	"testing"

	"PortPulse/internal/domain/models"
)

func snapWith(positions ...models.PositionSnapshot) *models.PortfolioSnapshot {
	return &models.PortfolioSnapshot{Positions: positions}
}

func TestExposureEmptySnapshot(t *testing.T) {
	e := NewExposureEngine()

	m := e.Compute(nil)
	if m.GrossExposureUSD != 0 || m.NetExposureUSD != 0 || m.ConcentrationHHI != 0 {
		t.Fatalf("expected zero metrics, got %+v", m)
	}

	m = e.Compute(snapWith())
	if m.GrossExposureUSD != 0 || m.NetExposureUSD != 0 || m.ConcentrationHHI != 0 {
		t.Fatalf("expected zero metrics for empty positions, got %+v", m)
	}
}

func TestExposureGrossAndNet(t *testing.T) {
	e := NewExposureEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 1, MarkPrice: 50000},
		models.PositionSnapshot{Symbol: "ETH-USD", Side: "short", Size: 10, MarkPrice: 3000},
	)

	m := e.Compute(snap)
	if m.GrossExposureUSD != 80000 {
		t.Fatalf("gross: want 80000, got %v", m.GrossExposureUSD)
	}
	if m.NetExposureUSD != 20000 {
		t.Fatalf("net: want 20000, got %v", m.NetExposureUSD)
	}
}

func TestExposureHHISingleSymbol(t *testing.T) {
	e := NewExposureEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 2, MarkPrice: 40000},
	)

	m := e.Compute(snap)
	if math.Abs(m.ConcentrationHHI-1.0) > 1e-12 {
		t.Fatalf("single-symbol HHI: want 1.0, got %v", m.ConcentrationHHI)
	}
}

func TestExposureHHIRange(t *testing.T) {
	e := NewExposureEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 1, MarkPrice: 50000},
		models.PositionSnapshot{Symbol: "ETH-USD", Side: "long", Size: 5, MarkPrice: 3000},
		models.PositionSnapshot{Symbol: "SOL-USD", Side: "short", Size: 100, MarkPrice: 150},
	)

	m := e.Compute(snap)
	if m.ConcentrationHHI <= 0 || m.ConcentrationHHI > 1 {
		t.Fatalf("HHI out of range: %v", m.ConcentrationHHI)
	}
}

func TestExposureOrderIndependent(t *testing.T) {
	e := NewExposureEngine()
	positions := []models.PositionSnapshot{
		{Symbol: "BTC-USD", Side: "long", Size: 1, MarkPrice: 50000},
		{Symbol: "ETH-USD", Side: "short", Size: 10, MarkPrice: 3000},
		{Symbol: "SOL-USD", Side: "long", Size: 100, MarkPrice: 150},
		{Symbol: "BTC-USD", Side: "short", Size: 0.5, MarkPrice: 50000},
	}

	want := e.Compute(snapWith(positions...))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]models.PositionSnapshot, len(positions))
		copy(shuffled, positions)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := e.Compute(snapWith(shuffled...))
		if math.Abs(got.GrossExposureUSD-want.GrossExposureUSD) > 1e-9 ||
			math.Abs(got.NetExposureUSD-want.NetExposureUSD) > 1e-9 ||
			math.Abs(got.ConcentrationHHI-want.ConcentrationHHI) > 1e-9 {
			t.Fatalf("order-dependent result: want %+v, got %+v", want, got)
		}
	}
}
