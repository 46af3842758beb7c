package analytics

import (
	"math"
	"testing"

	"PortPulse/internal/domain/models"
)

func TestScenarioZeroShock(t *testing.T) {
	e := NewScenarioEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 1, EntryPrice: 90000, MarkPrice: 95000, UnrealizedPnL: 5000},
	)
	snap.TotalEquityUSD = 105000

	res := e.Simulate(snap, map[string]float64{"BTC": 0})
	if res.PnLImpact != 0 {
		t.Fatalf("zero shock impact: want 0, got %v", res.PnLImpact)
	}
	if res.SimulatedEquity != snap.TotalEquityUSD {
		t.Fatalf("zero shock equity: want %v, got %v", snap.TotalEquityUSD, res.SimulatedEquity)
	}
	if len(res.Details) != 0 {
		t.Fatalf("zero shock must produce no details, got %d", len(res.Details))
	}
}

func TestScenarioLongShock(t *testing.T) {
	e := NewScenarioEngine()
	snap := snapWith(
		models.PositionSnapshot{
			Symbol: "BTC-USD", Venue: "binance", Side: "long",
			Size: 0.5, EntryPrice: 95000, MarkPrice: 96000, UnrealizedPnL: 500,
		},
	)
	snap.TotalEquityUSD = 100500

	res := e.Simulate(snap, map[string]float64{"BTC": -0.10})

	if len(res.Details) != 1 {
		t.Fatalf("want 1 detail, got %d", len(res.Details))
	}
	d := res.Details[0]
	if math.Abs(d.NewMark-86400) > 1e-9 {
		t.Fatalf("new mark: want 86400, got %v", d.NewMark)
	}
	// new pnl (86400-95000)*0.5 = -4300; delta vs +500 = -4800.
	if math.Abs(d.PnLChange-(-4800)) > 1e-9 {
		t.Fatalf("pnl change: want -4800, got %v", d.PnLChange)
	}
	if math.Abs(res.PnLImpact-(-4800)) > 1e-9 {
		t.Fatalf("impact: want -4800, got %v", res.PnLImpact)
	}
	if math.Abs(res.SimulatedEquity-95700) > 1e-9 {
		t.Fatalf("simulated equity: want 95700, got %v", res.SimulatedEquity)
	}
}

func TestScenarioShortGainsOnDrop(t *testing.T) {
	e := NewScenarioEngine()
	snap := snapWith(
		models.PositionSnapshot{
			Symbol: "ETH-USD", Side: "short",
			Size: 10, EntryPrice: 3000, MarkPrice: 3000, UnrealizedPnL: 0,
		},
	)
	snap.TotalEquityUSD = 100000

	res := e.Simulate(snap, map[string]float64{"ETH": -0.20})

	// new mark 2400; short pnl (3000-2400)*10 = 6000.
	if math.Abs(res.PnLImpact-6000) > 1e-9 {
		t.Fatalf("short impact: want 6000, got %v", res.PnLImpact)
	}
	if math.Abs(res.SimulatedEquity-106000) > 1e-9 {
		t.Fatalf("simulated equity: want 106000, got %v", res.SimulatedEquity)
	}
}

func TestScenarioUnmatchedPositionSkipped(t *testing.T) {
	e := NewScenarioEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "SOL-USD", Side: "long", Size: 100, EntryPrice: 150, MarkPrice: 160, UnrealizedPnL: 1000},
	)
	snap.TotalEquityUSD = 101000

	res := e.Simulate(snap, map[string]float64{"BTC": -0.5})
	if res.PnLImpact != 0 || len(res.Details) != 0 {
		t.Fatalf("unmatched position must be skipped, got %+v", res)
	}
}

func TestScenarioFirstMatchWins(t *testing.T) {
	e := NewScenarioEngine()
	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTCUSDT", Side: "long", Size: 1, EntryPrice: 100000, MarkPrice: 100000, UnrealizedPnL: 0},
	)
	snap.TotalEquityUSD = 100000

	// Both keys match the symbol by substring; sorted order makes "BTC" win
	// over "USDT" deterministically.
	res := e.Simulate(snap, map[string]float64{"USDT": 0.5, "BTC": -0.10})
	if len(res.Details) != 1 {
		t.Fatalf("want 1 detail, got %d", len(res.Details))
	}
	if math.Abs(res.Details[0].NewMark-90000) > 1e-9 {
		t.Fatalf("first-match shock not applied: new mark %v", res.Details[0].NewMark)
	}
}
