package analytics

import (
	"math"

	"PortPulse/internal/domain/models"
)

// noiseFloorUSD filters attribution deltas indistinguishable from rounding.
const noiseFloorUSD = 0.01

// AttributionEngine decomposes the PnL change between two snapshots into
// per-symbol contributions.
type AttributionEngine struct{}

func NewAttributionEngine() *AttributionEngine { return &AttributionEngine{} }

// Compute returns per-symbol PnL deltas between current and previous. A
// symbol absent from one side contributes 0 on that side. No previous
// snapshot yields the explicit no-data result.
func (e *AttributionEngine) Compute(current, previous *models.PortfolioSnapshot) models.AttributionResult {
	if previous == nil {
		return models.AttributionResult{HasPrevious: false}
	}

	currPnL := pnlBySymbol(current)
	prevPnL := pnlBySymbol(previous)

	breakdown := make(map[string]float64)
	for sym, cur := range currPnL {
		if d := cur - prevPnL[sym]; math.Abs(d) > noiseFloorUSD {
			breakdown[sym] = d
		}
	}
	for sym, prev := range prevPnL {
		if _, seen := currPnL[sym]; seen {
			continue
		}
		if d := -prev; math.Abs(d) > noiseFloorUSD {
			breakdown[sym] = d
		}
	}

	return models.AttributionResult{
		HasPrevious:    true,
		TotalPnLChange: current.TotalUnrealizedPnLUSD - previous.TotalUnrealizedPnLUSD,
		Breakdown:      breakdown,
	}
}

func pnlBySymbol(snap *models.PortfolioSnapshot) map[string]float64 {
	out := make(map[string]float64)
	if snap == nil {
		return out
	}
	for _, p := range snap.Positions {
		out[p.Symbol] += p.UnrealizedPnL
	}
	return out
}
