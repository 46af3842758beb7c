package analytics

import (
	"context"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"
)

// z-score for one-tailed 95% confidence.
const var95ZScore = 1.645

// RiskEngine computes rolling drawdown from an equity history and a
// parametric 95% 1-day VaR as an uncorrelated sum of per-position VaRs.
// Positions whose volatility estimate is zero-confidence contribute zero to
// VaR; the total is understated accordingly and the miss is logged.
type RiskEngine struct {
	vol drepo.VolatilitySource
	l   *logger.Logger
}

func NewRiskEngine(vol drepo.VolatilitySource, l *logger.Logger) *RiskEngine {
	return &RiskEngine{vol: vol, l: l.With("risk")}
}

func (r *RiskEngine) Compute(ctx context.Context, snap *models.PortfolioSnapshot, equityHistory []float64) models.RiskMetrics {
	var m models.RiskMetrics
	m.RollingDrawdownPct = Drawdown(equityHistory)

	if snap == nil {
		return m
	}

	var totalVaR float64
	for _, ps := range snap.Positions {
		pos := ps.AsNormalized()
		est := r.vol.Estimate(ctx, pos.Symbol)
		if !est.Confident {
			r.l.Warn("zero-confidence volatility, VaR contribution understated",
				logger.String("symbol", pos.Symbol),
				logger.Int("samples", est.Samples))
		}
		totalVaR += pos.Notional() * est.Sigma * var95ZScore
	}

	if snap.TotalEquityUSD > 0 {
		m.Var951DPct = totalVaR / snap.TotalEquityUSD
	}
	return m
}

// Drawdown returns (peak - current) / peak over a chronological equity
// history, 0 when the history is empty or the peak is non-positive.
func Drawdown(equityHistory []float64) float64 {
	if len(equityHistory) == 0 {
		return 0
	}
	peak := equityHistory[0]
	for _, v := range equityHistory[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 0
	}
	current := equityHistory[len(equityHistory)-1]
	return (peak - current) / peak
}
