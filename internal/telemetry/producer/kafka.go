package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"platform-event-publisher/internal/telemetry/domain"
)

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
	logger zerolog.Logger
}

// NewKafkaProducer creates a Kafka producer that writes receipts to the given topic.
// It returns nil when brokers or topic is empty. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string, logger zerolog.Logger) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: writer, topic: topic, logger: logger}
}

// Emit writes the receipt as JSON keyed by event id so receipts for one event share a partition.
func (p *KafkaProducer) Emit(ctx context.Context, receipt *domain.Receipt) error {
	if p == nil || p.writer == nil || receipt == nil {
		return nil
	}
	msg, err := receiptMessage(receipt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Warn().Err(err).Str("topic", p.topic).Msg("kafka receipt write failed")
		return err
	}
	return nil
}

func receiptMessage(receipt *domain.Receipt) (kafka.Message, error) {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(receipt.EventID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "transport", Value: []byte(receipt.Transport)},
		},
	}, nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
