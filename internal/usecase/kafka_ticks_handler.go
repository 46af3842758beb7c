package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PortPulse/internal/domain/models"
	domrepo "PortPulse/internal/domain/repository"
	pkgkafka "PortPulse/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages from Kafka and writes them to the
// tick store. Used when the ingest backend is "kafka".
type KafkaTicksHandler struct {
	topic   string
	store   domrepo.TickStore
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, store domrepo.TickStore, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// TickMessage is the wire schema published by the Kafka tick publisher.
type TickMessage struct {
	Venue     string   `json:"venue"`
	Symbol    string   `json:"symbol"`
	Timestamp int64    `json:"ts"` // unix seconds
	Bid       float64  `json:"bid"`
	Ask       float64  `json:"ask"`
	Last      float64  `json:"last"`
	Volume24h *float64 `json:"volume_24h,omitempty"`
}

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m TickMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Timestamp > 1e11 { // ms
		m.Timestamp = m.Timestamp / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.store.Store(ctx, &models.MarketTick{
		Venue:     m.Venue,
		Symbol:    m.Symbol,
		Timestamp: time.Unix(m.Timestamp, 0),
		Bid:       m.Bid,
		Ask:       m.Ask,
		Last:      m.Last,
		Volume24h: m.Volume24h,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordTickStored("clickhouse", m.Venue)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
