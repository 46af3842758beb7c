package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/clickhouse"
	"PortPulse/pkg/logger"
)

const tickInsertChunk = 1000

var tickSchema = []string{
	`CREATE TABLE IF NOT EXISTS market_ticks (
		venue      LowCardinality(String),
		symbol     LowCardinality(String),
		ts         DateTime64(3, 'UTC'),
		bid        Float64,
		ask        Float64,
		last       Float64,
		volume_24h Nullable(Float64)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 30 DAY`,
}

// ClickHouseTickStore persists market ticks in ClickHouse, append-only.
type ClickHouseTickStore struct {
	client *clickhouse.Client
	l      *logger.Logger
}

func NewClickHouseTickStore(client *clickhouse.Client, l *logger.Logger) *ClickHouseTickStore {
	return &ClickHouseTickStore{client: client, l: l.With("tick_store")}
}

// Init creates the market_ticks table if it does not exist.
func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, tickSchema)
}

func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.MarketTick) error {
	return s.StoreBatch(ctx, []*models.MarketTick{t})
}

// StoreBatch inserts ticks in chunks of tickInsertChunk rows.
func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.MarketTick) error {
	for start := 0; start < len(ticks); start += tickInsertChunk {
		end := start + tickInsertChunk
		if end > len(ticks) {
			end = len(ticks)
		}
		if err := s.insertChunk(ctx, ticks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTickStore) insertChunk(ctx context.Context, ticks []*models.MarketTick) error {
	if len(ticks) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO market_ticks (venue, symbol, ts, bid, ask, last, volume_24h) VALUES ")

	args := make([]interface{}, 0, len(ticks)*7)
	for i, t := range ticks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?)")

		var vol sql.NullFloat64
		if t.Volume24h != nil {
			vol = sql.NullFloat64{Float64: *t.Volume24h, Valid: true}
		}
		args = append(args, t.Venue, t.Symbol, t.Timestamp.UTC(), t.Bid, t.Ask, t.Last, vol)
	}

	if _, err := s.client.DB().ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert ticks: %w", err)
	}

	s.l.Debug("ticks inserted", logger.Int("count", len(ticks)))
	return nil
}

// QueryRange returns ticks whose symbol starts with symbolPrefix in [from, to],
// ordered by timestamp ascending.
func (s *ClickHouseTickStore) QueryRange(ctx context.Context, symbolPrefix string, from, to time.Time) ([]*models.MarketTick, error) {
	const q = `
		SELECT venue, symbol, ts, bid, ask, last, volume_24h
		FROM market_ticks
		WHERE symbol LIKE ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`

	rows, err := s.client.DB().QueryContext(ctx, q, symbolPrefix+"%", from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []*models.MarketTick
	for rows.Next() {
		var (
			t   models.MarketTick
			vol sql.NullFloat64
		)
		if err := rows.Scan(&t.Venue, &t.Symbol, &t.Timestamp, &t.Bid, &t.Ask, &t.Last, &vol); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		if vol.Valid {
			v := vol.Float64
			t.Volume24h = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return s.client.Close()
}

var _ drepo.TickStore = (*ClickHouseTickStore)(nil)
