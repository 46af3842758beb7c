package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Side is the direction of a position. Size is always non-negative;
// direction lives here, never in the sign of the size.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// NormalizedPosition is the canonical cross-venue position record.
// Leverage is nil when the venue does not report it.
type NormalizedPosition struct {
	Venue         string
	Symbol        string
	Side          Side
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnL float64
	Leverage      *float64
}

// Notional returns size * mark price in quote currency.
func (p NormalizedPosition) Notional() float64 {
	return p.Size * p.MarkPrice
}

// BaseAsset extracts the base asset from symbols like "BTC/USDT" or "ETH-USD".
func (p NormalizedPosition) BaseAsset() string {
	if i := strings.IndexAny(p.Symbol, "/-"); i > 0 {
		return p.Symbol[:i]
	}
	return p.Symbol
}

// JSONMap is a float-valued map persisted as a JSON column.
type JSONMap map[string]float64

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("jsonmap: unsupported source type %T", src)
	}
}

// PortfolioSnapshot is one persisted portfolio-wide view, created once per
// cycle by the aggregator and immutable afterwards.
type PortfolioSnapshot struct {
	ID                    uint      `gorm:"primaryKey"`
	Timestamp             time.Time `gorm:"index"`
	TotalEquityUSD        float64
	TotalMarginUsedUSD    float64
	TotalUnrealizedPnLUSD float64
	AssetBreakdown        JSONMap            `gorm:"type:jsonb"`
	Positions             []PositionSnapshot `gorm:"foreignKey:SnapshotID"`
}

func (PortfolioSnapshot) TableName() string { return "portfolio_snapshots" }

// PositionSnapshot is a NormalizedPosition row attached to a snapshot.
type PositionSnapshot struct {
	ID            uint `gorm:"primaryKey"`
	SnapshotID    uint `gorm:"index"`
	Venue         string
	Symbol        string
	Side          string
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnL float64
	Leverage      *float64
}

func (PositionSnapshot) TableName() string { return "position_snapshots" }

// AsNormalized converts the persisted row back to the canonical type.
func (p PositionSnapshot) AsNormalized() NormalizedPosition {
	return NormalizedPosition{
		Venue:         p.Venue,
		Symbol:        p.Symbol,
		Side:          Side(p.Side),
		Size:          p.Size,
		EntryPrice:    p.EntryPrice,
		MarkPrice:     p.MarkPrice,
		UnrealizedPnL: p.UnrealizedPnL,
		Leverage:      p.Leverage,
	}
}
