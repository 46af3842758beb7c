package models

import "time"

// VolatilityEstimate is an annualized standard deviation of returns for one
// symbol. Confident is false when the estimator had too little data; Sigma is
// then 0.0 by policy, which is a defined result, not an error.
type VolatilityEstimate struct {
	Symbol    string  `json:"symbol"`
	Sigma     float64 `json:"sigma"`
	Samples   int     `json:"samples"`
	Confident bool    `json:"confident"`
}

// ExposureMetrics are pure functions of one snapshot.
type ExposureMetrics struct {
	GrossExposureUSD float64 `json:"gross_exposure_usd"`
	NetExposureUSD   float64 `json:"net_exposure_usd"`
	ConcentrationHHI float64 `json:"concentration_hhi"`
}

// RiskMetrics combine equity-curve drawdown and parametric VaR.
type RiskMetrics struct {
	RollingDrawdownPct float64 `json:"rolling_drawdown_pct"`
	Var951DPct         float64 `json:"var_95_1d_pct"`
}

// AttributionResult decomposes the PnL change between two snapshots.
// HasPrevious is false when no earlier snapshot exists; that is the explicit
// "no data" outcome, not an error.
type AttributionResult struct {
	HasPrevious    bool               `json:"has_previous"`
	TotalPnLChange float64            `json:"total_pnl_change"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty"`
}

// ScenarioDetail records the effect of a shock on a single position, kept for
// audit alongside the aggregate result.
type ScenarioDetail struct {
	Symbol       string  `json:"symbol"`
	Venue        string  `json:"venue"`
	OriginalMark float64 `json:"original_mark"`
	NewMark      float64 `json:"new_mark"`
	PnLChange    float64 `json:"pnl_change"`
}

// ScenarioResult is the outcome of applying price shocks to a snapshot.
type ScenarioResult struct {
	OriginalEquity  float64          `json:"original_equity"`
	SimulatedEquity float64          `json:"simulated_equity"`
	PnLImpact       float64          `json:"pnl_impact"`
	Details         []ScenarioDetail `json:"details"`
}

// AnalyticsSnapshot is the persisted analytics record, one-to-one with a
// portfolio snapshot. Inserted once per completed cycle, never mutated.
type AnalyticsSnapshot struct {
	ID                   uint `gorm:"primaryKey"`
	SnapshotID           uint `gorm:"uniqueIndex"`
	GrossExposureUSD     float64
	NetExposureUSD       float64
	ConcentrationHHI     float64
	RollingDrawdownPct   float64
	Var951DPct           float64
	AttributionBreakdown JSONMap `gorm:"type:jsonb"`
	CreatedAt            time.Time
}

func (AnalyticsSnapshot) TableName() string { return "analytics_snapshots" }
