package analytics

import (
	"sort"
	"strings"

	"PortPulse/internal/domain/models"
)

// ScenarioEngine applies hypothetical price shocks to a snapshot and reports
// the equity impact with per-position audit details.
type ScenarioEngine struct{}

func NewScenarioEngine() *ScenarioEngine { return &ScenarioEngine{} }

// Simulate matches each position against the shock map by asset substring;
// the first matching key (in sorted key order, for determinism) wins.
// Positions with no match or a zero shock are excluded from the impact.
func (e *ScenarioEngine) Simulate(snap *models.PortfolioSnapshot, shocks map[string]float64) models.ScenarioResult {
	res := models.ScenarioResult{
		Details: []models.ScenarioDetail{},
	}
	if snap == nil {
		return res
	}
	res.OriginalEquity = snap.TotalEquityUSD
	res.SimulatedEquity = snap.TotalEquityUSD

	keys := make([]string, 0, len(shocks))
	for k := range shocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, ps := range snap.Positions {
		pos := ps.AsNormalized()

		shock := 0.0
		for _, asset := range keys {
			if asset != "" && strings.Contains(pos.Symbol, asset) {
				shock = shocks[asset]
				break
			}
		}
		if shock == 0 {
			continue
		}

		newMark := pos.MarkPrice * (1 + shock)

		var newPnL float64
		if pos.Side == models.SideLong {
			newPnL = (newMark - pos.EntryPrice) * pos.Size
		} else {
			newPnL = (pos.EntryPrice - newMark) * pos.Size
		}

		delta := newPnL - pos.UnrealizedPnL
		res.PnLImpact += delta
		res.SimulatedEquity += delta

		res.Details = append(res.Details, models.ScenarioDetail{
			Symbol:       pos.Symbol,
			Venue:        pos.Venue,
			OriginalMark: pos.MarkPrice,
			NewMark:      newMark,
			PnLChange:    delta,
		})
	}

	return res
}
