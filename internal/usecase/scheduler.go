package usecase

import (
	"context"
	"fmt"
	"time"

	"PortPulse/internal/analytics"
	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"
)

// CycleScheduler runs the aggregate-then-analyze loop. Cycles never overlap;
// a failed cycle is retried after the shorter cooldown interval. Analytics
// for a cycle are persisted atomically: either the full record lands or
// nothing does.
type CycleScheduler struct {
	aggregator *SnapshotAggregator
	store      drepo.SnapshotStore
	exposure   *analytics.ExposureEngine
	risk       *analytics.RiskEngine
	attrib     *analytics.AttributionEngine
	metrics    drepo.Metrics

	interval     time.Duration
	cooldown     time.Duration
	historyDepth int
	l            *logger.Logger
}

func NewCycleScheduler(
	aggregator *SnapshotAggregator,
	store drepo.SnapshotStore,
	exposure *analytics.ExposureEngine,
	risk *analytics.RiskEngine,
	attrib *analytics.AttributionEngine,
	metrics drepo.Metrics,
	interval, cooldown time.Duration,
	historyDepth int,
	l *logger.Logger,
) *CycleScheduler {
	return &CycleScheduler{
		aggregator:   aggregator,
		store:        store,
		exposure:     exposure,
		risk:         risk,
		attrib:       attrib,
		metrics:      metrics,
		interval:     interval,
		cooldown:     cooldown,
		historyDepth: historyDepth,
		l:            l.With("scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *CycleScheduler) Run(ctx context.Context) {
	s.l.Info("cycle scheduler started",
		logger.Duration("interval", s.interval),
		logger.Duration("cooldown", s.cooldown))

	for {
		wait := s.interval
		if err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.l.Error("cycle failed", logger.Error(err))
			wait = s.cooldown
		}

		select {
		case <-ctx.Done():
			s.l.Info("cycle scheduler stopped")
			return
		case <-time.After(wait):
		}
	}
}

// RunCycle executes one full aggregation and analytics pass.
func (s *CycleScheduler) RunCycle(ctx context.Context) error {
	start := time.Now()

	snap, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		s.metrics.RecordCycle("error", time.Since(start).Seconds())
		return fmt.Errorf("aggregate: %w", err)
	}

	// History is read after the save so the current equity is included.
	history, err := s.store.EquityHistory(ctx, s.historyDepth)
	if err != nil {
		s.metrics.RecordCycle("error", time.Since(start).Seconds())
		return fmt.Errorf("equity history: %w", err)
	}

	previous, err := s.store.PreviousSnapshot(ctx, snap.ID)
	if err != nil {
		s.metrics.RecordCycle("error", time.Since(start).Seconds())
		return fmt.Errorf("previous snapshot: %w", err)
	}

	exposure := s.exposure.Compute(snap)
	risk := s.risk.Compute(ctx, snap, history)
	attribution := s.attrib.Compute(snap, previous)

	record := &models.AnalyticsSnapshot{
		SnapshotID:           snap.ID,
		GrossExposureUSD:     exposure.GrossExposureUSD,
		NetExposureUSD:       exposure.NetExposureUSD,
		ConcentrationHHI:     exposure.ConcentrationHHI,
		RollingDrawdownPct:   risk.RollingDrawdownPct,
		Var951DPct:           risk.Var951DPct,
		AttributionBreakdown: models.JSONMap(attribution.Breakdown),
	}

	if err := s.store.SaveAnalytics(ctx, record); err != nil {
		s.metrics.RecordCycle("error", time.Since(start).Seconds())
		return fmt.Errorf("save analytics: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.RecordCycle("ok", elapsed.Seconds())
	s.l.Info("cycle complete",
		logger.Uint("snapshot_id", snap.ID),
		logger.Float64("gross_exposure_usd", exposure.GrossExposureUSD),
		logger.Float64("drawdown_pct", risk.RollingDrawdownPct),
		logger.Duration("elapsed", elapsed))

	return nil
}
