package usecase

import (
	"context"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	pkgkafka "PortPulse/pkg/kafka"
)

// KafkaTickPublisher fans ticks into a Kafka topic, keyed by symbol so a
// symbol's ticks stay ordered within a partition.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.MarketTick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), toTickMessage(t))
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.MarketTick) error {
	msgs := make([]pkgkafka.Message, 0, len(ticks))
	for _, t := range ticks {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(t.Symbol),
			Value: toTickMessage(t),
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	return p.producer.Close()
}

func toTickMessage(t *models.MarketTick) TickMessage {
	return TickMessage{
		Venue:     t.Venue,
		Symbol:    t.Symbol,
		Timestamp: t.Timestamp.Unix(),
		Bid:       t.Bid,
		Ask:       t.Ask,
		Last:      t.Last,
		Volume24h: t.Volume24h,
	}
}

var _ drepo.TickPublisher = (*KafkaTickPublisher)(nil)
