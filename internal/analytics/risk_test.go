package analytics

import (
	"context"
	"math"
	"testing"

	"PortPulse/internal/domain/models"
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

type stubVolSource struct {
	estimates map[string]models.VolatilityEstimate
}

func (s *stubVolSource) Estimate(_ context.Context, symbol string) models.VolatilityEstimate {
	if est, ok := s.estimates[symbol]; ok {
		est.Symbol = symbol
		return est
	}
	return models.VolatilityEstimate{Symbol: symbol}
}

func TestDrawdownEmpty(t *testing.T) {
	if d := Drawdown(nil); d != 0 {
		t.Fatalf("empty history: want 0, got %v", d)
	}
}

func TestDrawdownPeakToCurrent(t *testing.T) {
	d := Drawdown([]float64{100, 80, 90})
	if math.Abs(d-0.10) > 1e-12 {
		t.Fatalf("want 0.10, got %v", d)
	}
}

func TestDrawdownMonotonicRise(t *testing.T) {
	if d := Drawdown([]float64{100, 110, 120}); d != 0 {
		t.Fatalf("rising equity: want 0, got %v", d)
	}
}

func TestRiskVaRParametric(t *testing.T) {
	vol := &stubVolSource{estimates: map[string]models.VolatilityEstimate{
		"BTC-USD": {Sigma: 0.5, Samples: 100, Confident: true},
	}}
	r := NewRiskEngine(vol, testLogger(t))

	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 1, MarkPrice: 100000},
	)
	snap.TotalEquityUSD = 200000

	m := r.Compute(context.Background(), snap, nil)

	// notional 100000 * sigma 0.5 * 1.645 = 82250; over equity 200000.
	want := 82250.0 / 200000.0
	if math.Abs(m.Var951DPct-want) > 1e-9 {
		t.Fatalf("VaR pct: want %v, got %v", want, m.Var951DPct)
	}
}

func TestRiskZeroConfidenceContributesZero(t *testing.T) {
	vol := &stubVolSource{} // every estimate is zero-confidence
	r := NewRiskEngine(vol, testLogger(t))

	snap := snapWith(
		models.PositionSnapshot{Symbol: "BTC-USD", Side: "long", Size: 1, MarkPrice: 100000},
	)
	snap.TotalEquityUSD = 100000

	m := r.Compute(context.Background(), snap, []float64{100000})
	if m.Var951DPct != 0 {
		t.Fatalf("zero-confidence vol must yield zero VaR, got %v", m.Var951DPct)
	}
}

func TestRiskNilSnapshot(t *testing.T) {
	r := NewRiskEngine(&stubVolSource{}, testLogger(t))
	m := r.Compute(context.Background(), nil, []float64{100, 90})
	if math.Abs(m.RollingDrawdownPct-0.10) > 1e-12 {
		t.Fatalf("drawdown: want 0.10, got %v", m.RollingDrawdownPct)
	}
	if m.Var951DPct != 0 {
		t.Fatalf("nil snapshot VaR: want 0, got %v", m.Var951DPct)
	}
}
