package usecase

import (
	"context"
	"sync"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"
)

// SnapshotAggregator fans out to all venue adapters concurrently, merges
// their positions into one portfolio snapshot and persists it. A failing or
// slow venue degrades to an empty contribution so one outage never blocks
// the cycle.
type SnapshotAggregator struct {
	adapters     []drepo.VenueAdapter
	store        drepo.SnapshotStore
	metrics      drepo.Metrics
	startingCash float64
	fetchTimeout time.Duration
	l            *logger.Logger
}

func NewSnapshotAggregator(
	adapters []drepo.VenueAdapter,
	store drepo.SnapshotStore,
	metrics drepo.Metrics,
	startingCash float64,
	fetchTimeout time.Duration,
	l *logger.Logger,
) *SnapshotAggregator {
	return &SnapshotAggregator{
		adapters:     adapters,
		store:        store,
		metrics:      metrics,
		startingCash: startingCash,
		fetchTimeout: fetchTimeout,
		l:            l.With("aggregator"),
	}
}

type venueResult struct {
	venue     string
	positions []models.NormalizedPosition
	err       error
}

// Aggregate collects positions from every venue, builds the snapshot and
// saves it. The returned snapshot carries the store-assigned id.
func (a *SnapshotAggregator) Aggregate(ctx context.Context) (*models.PortfolioSnapshot, error) {
	results := make(chan venueResult, len(a.adapters))

	var wg sync.WaitGroup
	for _, adapter := range a.adapters {
		wg.Add(1)
		go func(ad drepo.VenueAdapter) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
			defer cancel()

			start := time.Now()
			positions, err := ad.FetchPositions(fctx)
			a.metrics.RecordLatency("venue_fetch_"+ad.Name(), time.Since(start).Seconds())
			results <- venueResult{venue: ad.Name(), positions: positions, err: err}
		}(adapter)
	}
	wg.Wait()
	close(results)

	var positions []models.NormalizedPosition
	for res := range results {
		if res.err != nil {
			a.l.Warn("venue unavailable, empty contribution",
				logger.String("venue", res.venue), logger.Error(res.err))
			a.metrics.RecordError("venue_" + res.venue)
			a.metrics.RecordVenuePositions(res.venue, 0)
			continue
		}
		a.metrics.RecordVenuePositions(res.venue, len(res.positions))
		positions = append(positions, res.positions...)
	}

	snap := a.buildSnapshot(positions)

	if err := a.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	a.metrics.RecordEquity(snap.TotalEquityUSD)
	a.l.Info("snapshot persisted",
		logger.Uint("snapshot_id", snap.ID),
		logger.Int("positions", len(snap.Positions)),
		logger.Float64("equity_usd", snap.TotalEquityUSD))

	return snap, nil
}

func (a *SnapshotAggregator) buildSnapshot(positions []models.NormalizedPosition) *models.PortfolioSnapshot {
	snap := &models.PortfolioSnapshot{
		Timestamp:      time.Now().UTC(),
		AssetBreakdown: models.JSONMap{},
	}

	for _, pos := range positions {
		var pnl, margin float64
		pnl = pos.UnrealizedPnL
		if pos.Leverage != nil && *pos.Leverage > 0 {
			margin = pos.Size * pos.EntryPrice / *pos.Leverage
		}

		snap.TotalUnrealizedPnLUSD += pnl
		snap.TotalMarginUsedUSD += margin

		// Net size per base asset, shorts counted negative.
		size := pos.Size
		if pos.Side == models.SideShort {
			size = -size
		}
		snap.AssetBreakdown[pos.BaseAsset()] += size

		snap.Positions = append(snap.Positions, models.PositionSnapshot{
			Venue:         pos.Venue,
			Symbol:        pos.Symbol,
			Side:          string(pos.Side),
			Size:          pos.Size,
			EntryPrice:    pos.EntryPrice,
			MarkPrice:     pos.MarkPrice,
			UnrealizedPnL: pos.UnrealizedPnL,
			Leverage:      pos.Leverage,
		})
	}

	snap.TotalEquityUSD = a.startingCash + snap.TotalUnrealizedPnLUSD
	return snap
}
