package repository

import (
	"context"
	"time"

	"PortPulse/internal/domain/models"
)

// VenueAdapter fetches open positions from one venue and maps them to the
// canonical schema. A venue without configured credentials returns an empty
// list and a nil error; a transient venue failure returns an error that the
// caller logs and degrades to an empty contribution.
type VenueAdapter interface {
	Name() string
	FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error)
}

// TickStream is one persistent venue market-data connection.
type TickStream interface {
	Venue() string
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickStore is the append-only time-series store for market ticks.
type TickStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.MarketTick) error
	StoreBatch(ctx context.Context, ticks []*models.MarketTick) error
	// QueryRange returns ticks whose symbol starts with symbolPrefix within
	// [from, to], ordered by timestamp ascending.
	QueryRange(ctx context.Context, symbolPrefix string, from, to time.Time) ([]*models.MarketTick, error)
	Health(ctx context.Context) error
	Close() error
}

// TickPublisher fans ticks through a message broker instead of writing
// directly to the store.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.MarketTick) error
	PublishBatch(ctx context.Context, ticks []*models.MarketTick) error
	Close() error
}

// SnapshotStore persists portfolio and analytics snapshots. All writes are
// insert-only; snapshot ids increase monotonically.
type SnapshotStore interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, s *models.PortfolioSnapshot) error
	LatestSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error)
	// PreviousSnapshot returns the newest snapshot with id < beforeID, or nil
	// when none exists.
	PreviousSnapshot(ctx context.Context, beforeID uint) (*models.PortfolioSnapshot, error)
	// EquityHistory returns up to limit most recent equity values in
	// chronological order.
	EquityHistory(ctx context.Context, limit int) ([]float64, error)
	SaveAnalytics(ctx context.Context, a *models.AnalyticsSnapshot) error
	LatestAnalytics(ctx context.Context) (*models.AnalyticsSnapshot, error)
	Close() error
}

// VolatilitySource yields annualized volatility estimates per symbol.
type VolatilitySource interface {
	Estimate(ctx context.Context, symbol string) models.VolatilityEstimate
}

// Metrics abstracts the telemetry recorder.
type Metrics interface {
	RecordTickStored(backend, venue string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordVenuePositions(venue string, count int)
	RecordCycle(status string, seconds float64)
	RecordEquity(value float64)
}
