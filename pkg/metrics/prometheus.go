package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksStored    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	venuePositions *prometheus.GaugeVec
	cycles         *prometheus.HistogramVec
	equity         prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portpulse_ticks_stored_total",
				Help: "Total number of ticks routed to a backend",
			},
			[]string{"backend", "venue"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portpulse_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		venuePositions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portpulse_venue_positions",
				Help: "Open positions fetched per venue in the last cycle",
			},
			[]string{"venue"},
		),
		cycles: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portpulse_cycle_duration_seconds",
				Help:    "Analytics cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		equity: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "portpulse_total_equity_usd",
				Help: "Total portfolio equity from the latest snapshot",
			},
		),
	}
}

// RecordTickStored records a tick routed to a backend.
func (r *Recorder) RecordTickStored(backend, venue string) {
	r.ticksStored.WithLabelValues(backend, venue).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordVenuePositions records how many positions a venue reported.
func (r *Recorder) RecordVenuePositions(venue string, count int) {
	r.venuePositions.WithLabelValues(venue).Set(float64(count))
}

// RecordCycle records a completed or aborted scheduler cycle.
func (r *Recorder) RecordCycle(status string, seconds float64) {
	r.cycles.WithLabelValues(status).Observe(seconds)
}

// RecordEquity records the latest total equity.
func (r *Recorder) RecordEquity(value float64) {
	r.equity.Set(value)
}
