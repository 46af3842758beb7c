package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/cache"
	"PortPulse/pkg/logger"
)

// VolatilityEstimator derives a trailing annualized volatility per symbol
// from the tick store. Insufficient data is a defined zero-confidence result
// with Sigma 0.0, surfaced via logging, never an error.
type VolatilityEstimator struct {
	ticks    drepo.TickStore
	cache    cache.Service
	cacheTTL time.Duration
	lookback time.Duration
	resample time.Duration
	minTicks int
	l        *logger.Logger
}

type EstimatorOption func(*VolatilityEstimator)

// WithCache enables estimate caching with the given TTL.
func WithCache(c cache.Service, ttl time.Duration) EstimatorOption {
	return func(e *VolatilityEstimator) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithWindow overrides the lookback window and resample period.
func WithWindow(lookback, resample time.Duration) EstimatorOption {
	return func(e *VolatilityEstimator) {
		if lookback > 0 {
			e.lookback = lookback
		}
		if resample > 0 {
			e.resample = resample
		}
	}
}

// WithMinTicks overrides the minimum tick count for a confident estimate.
func WithMinTicks(n int) EstimatorOption {
	return func(e *VolatilityEstimator) {
		if n > 0 {
			e.minTicks = n
		}
	}
}

func NewVolatilityEstimator(ticks drepo.TickStore, l *logger.Logger, opts ...EstimatorOption) *VolatilityEstimator {
	e := &VolatilityEstimator{
		ticks:    ticks,
		lookback: 24 * time.Hour,
		resample: time.Hour,
		minTicks: 10,
		l:        l.With("volatility"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the annualized volatility for a portfolio symbol.
func (e *VolatilityEstimator) Estimate(ctx context.Context, symbol string) models.VolatilityEstimate {
	base := NormalizeSymbol(symbol)
	est := models.VolatilityEstimate{Symbol: symbol}

	if e.cache != nil {
		var cached models.VolatilityEstimate
		if err := e.cache.Get(ctx, volCacheKey(base), &cached); err == nil {
			cached.Symbol = symbol
			return cached
		}
	}

	now := time.Now()
	raw, err := e.ticks.QueryRange(ctx, base, now.Add(-e.lookback), now)
	if err != nil {
		e.l.Warn("tick query failed, zero-confidence estimate",
			logger.String("symbol", symbol), logger.Error(err))
		return est
	}
	est.Samples = len(raw)

	if len(raw) < e.minTicks {
		e.l.Debug("insufficient ticks for estimate",
			logger.String("symbol", symbol), logger.Int("ticks", len(raw)))
		return est
	}

	// At least 3 closes so the return series has a sample stddev; 2 closes
	// yield a single return and no dispersion to measure.
	closes := e.resampleLast(raw)
	if len(closes) < 3 {
		e.l.Debug("insufficient resampled points",
			logger.String("symbol", symbol), logger.Int("points", len(closes)))
		return est
	}

	sigma := annualizedStdDev(closes, periodsPerYear(e.resample))
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		e.l.Warn("non-finite volatility, zero-confidence estimate",
			logger.String("symbol", symbol))
		return est
	}

	est.Sigma = sigma
	est.Confident = true

	if e.cache != nil {
		_ = e.cache.Set(ctx, volCacheKey(base), est, e.cacheTTL)
	}
	return est
}

// resampleLast buckets ticks by the resample period and keeps the last tick
// per bucket, returning bucket closes in chronological order.
func (e *VolatilityEstimator) resampleLast(ticks []*models.MarketTick) []float64 {
	buckets := make(map[int64]*models.MarketTick)
	for _, t := range ticks {
		b := t.Timestamp.Truncate(e.resample).Unix()
		cur, ok := buckets[b]
		if !ok || t.Timestamp.After(cur.Timestamp) {
			buckets[b] = t
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	closes := make([]float64, 0, len(keys))
	for _, k := range keys {
		closes = append(closes, buckets[k].Last)
	}
	return closes
}

// annualizedStdDev computes the sample standard deviation of simple
// period-over-period returns, scaled by sqrt(periods per year).
func annualizedStdDev(closes []float64, periodsPerYear float64) float64 {
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}

	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))

	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	variance := ss / float64(len(rets)-1)
	return math.Sqrt(variance) * math.Sqrt(periodsPerYear)
}

func periodsPerYear(resample time.Duration) float64 {
	return float64(365*24) * float64(time.Hour) / float64(resample)
}

func volCacheKey(base string) string {
	return fmt.Sprintf("vol:%s", base)
}

var _ drepo.VolatilitySource = (*VolatilityEstimator)(nil)
