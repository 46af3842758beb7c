package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"PortPulse/internal/domain/models"
)

type countingProc struct {
	calls int
	err   error
}

func (c *countingProc) Process(context.Context, *models.MarketTick) error {
	c.calls++
	return c.err
}

type noopMetrics struct{}

func (noopMetrics) RecordTickStored(string, string) {}
func (noopMetrics) RecordError(string) {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64) {}
func (noopMetrics) RecordVenuePositions(string, int) {}
func (noopMetrics) RecordCycle(string, float64) {}
func (noopMetrics) RecordEquity(float64) {}

func tick(venue, symbol string) *models.MarketTick {
	return &models.MarketTick{
		Venue:     venue,
		Symbol:    symbol,
		Timestamp: time.Now(),
		Bid:       100,
		Ask:       101,
		Last:      100.5,
	}
}

func TestValidateTick(t *testing.T) {
	cases := []struct {
		name string
		tick *models.MarketTick
		ok   bool
	}{
		{"nil", nil, false},
		{"empty venue", &models.MarketTick{Symbol: "BTCUSDT", Timestamp: time.Now(), Last: 1}, false},
		{"empty symbol", &models.MarketTick{Venue: "binance", Timestamp: time.Now(), Last: 1}, false},
		{"zero timestamp", &models.MarketTick{Venue: "binance", Symbol: "BTCUSDT", Last: 1}, false},
		{"negative price", &models.MarketTick{Venue: "binance", Symbol: "BTCUSDT", Timestamp: time.Now(), Last: -1}, false},
		{"valid", tick("binance", "BTCUSDT"), true},
	}

	for _, c := range cases {
		err := validateTick(c.tick)
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestPipelineThrottlesPerKey(t *testing.T) {
	proc := &countingProc{}
	p := NewTickPipeline(proc, noopMetrics{}, WithMaxRPS(1))

	// Two immediate ticks for the same key: second is throttled, no error.
	if err := p.Process(context.Background(), tick("binance", "BTCUSDT")); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := p.Process(context.Background(), tick("binance", "BTCUSDT")); err != nil {
		t.Fatalf("throttled tick must not error: %v", err)
	}
	if proc.calls != 1 {
		t.Fatalf("throttled tick must not reach the processor, calls=%d", proc.calls)
	}

	// A different key is not affected.
	if err := p.Process(context.Background(), tick("binance", "ETHUSDT")); err != nil {
		t.Fatalf("other key: %v", err)
	}
	if proc.calls != 2 {
		t.Fatalf("independent key throttled, calls=%d", proc.calls)
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &countingProc{err: fmt.Errorf("store down")}
	p := NewTickPipeline(proc, noopMetrics{}, WithBufferSize(4))

	if err := p.Process(context.Background(), tick("binance", "BTCUSDT")); err == nil {
		t.Fatalf("downstream error must surface")
	}
	select {
	case buffered := <-p.bufCh:
		if buffered.Symbol != "BTCUSDT" {
			t.Fatalf("wrong tick buffered: %+v", buffered)
		}
	default:
		t.Fatalf("failed tick must be buffered for retry")
	}
}

func TestPipelineFlushRetriesBuffered(t *testing.T) {
	proc := &countingProc{}
	p := NewTickPipeline(proc, noopMetrics{}, WithBufferSize(4))

	p.bufCh <- tick("binance", "BTCUSDT")
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for proc.calls == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if proc.calls == 0 {
		t.Fatalf("buffered tick never flushed")
	}
}
