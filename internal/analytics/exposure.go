package analytics

import (
	"PortPulse/internal/domain/models"
)

// ExposureEngine computes exposure and concentration metrics. Pure function
// of a snapshot; an empty snapshot yields all-zero metrics.
type ExposureEngine struct{}

func NewExposureEngine() *ExposureEngine { return &ExposureEngine{} }

func (e *ExposureEngine) Compute(snap *models.PortfolioSnapshot) models.ExposureMetrics {
	var m models.ExposureMetrics
	if snap == nil || len(snap.Positions) == 0 {
		return m
	}

	symbolNotional := make(map[string]float64, len(snap.Positions))
	var totalNotional float64

	for _, ps := range snap.Positions {
		pos := ps.AsNormalized()
		notional := pos.Notional()
		m.GrossExposureUSD += notional

		if pos.Side == models.SideLong {
			m.NetExposureUSD += notional
		} else {
			m.NetExposureUSD -= notional
		}

		symbolNotional[pos.Symbol] += notional
		totalNotional += notional
	}

	// HHI over per-symbol notional shares, on the [0, 1] scale.
	if totalNotional > 0 {
		for _, v := range symbolNotional {
			share := v / totalNotional
			m.ConcentrationHHI += share * share
		}
	}

	return m
}
