package usecase

import (
	"context"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	mid "PortPulse/internal/middleware"
	"PortPulse/pkg/logger"
)

// TickCollector owns one venue stream: it connects, subscribes, consumes
// ticks into the processor, and reconnects on stream errors. A parse or
// store failure on one stream never affects the others.
type TickCollector struct {
	stream  drepo.TickStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.TickPipeline
	l       *logger.Logger
}

func NewTickCollector(stream drepo.TickStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.TickPipeline, l *logger.Logger) *TickCollector {
	return &TickCollector{
		stream:  stream,
		proc:    proc,
		metrics: metrics,
		pipe:    pipe,
		l:       l.With("collector_" + stream.Venue()),
	}
}

// IsConnected returns true if the venue stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.MarketTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream_" + c.stream.Venue())
				c.l.Warn("stream error, reconnecting", logger.Error(err))
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.l.Error("reconnect failed", logger.Error(rerr))
					continue
				}
				tickCh, errCh = c.stream.Read(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
			c.metrics.RecordLastPrice(t.Symbol, t.Last)
		}
	}
}

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
