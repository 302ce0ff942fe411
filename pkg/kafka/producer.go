// Package kafka carries corpus events between the ingest and search
// services over segmentio/kafka-go. Events are JSON on the wire, keyed by
// doc ID so updates for one document stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/caselens/caselens/pkg/config"
)

// Event is one message to publish: Key picks the partition, Value is
// marshalled to JSON.
type Event struct {
	Key   string
	Value any
}

// Producer writes events to a single topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer builds a synchronous writer for the topic. Acks from all
// replicas are required: a corpus-updated event that is lost means a search
// index that silently stays stale.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish marshals the event and writes it, blocking until the brokers
// acknowledge or the context ends.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("encoding event %q: %w", event.Key, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing event %q: %w", event.Key, err)
	}
	p.logger.Debug("event published", "key", event.Key, "bytes", len(payload))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
