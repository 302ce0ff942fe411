package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/caselens/caselens/pkg/config"
)

// MessageHandler processes one message. Returning an error leaves the
// message uncommitted so the consumer group sees it again; handlers decide
// for themselves which failures are worth a redelivery.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer runs a MessageHandler over one topic within the configured
// consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

// NewConsumer builds a group consumer starting at the latest offset: on
// first start the search service rebuilds from the store anyway, so
// historical events carry no information.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.ConsumerGroup,
			Topic:       topic,
			MinBytes:    1e3,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx ends. Fetch errors are logged and the loop keeps
// going; only a successfully handled message is committed.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consume loop started")
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consume loop stopping", "reason", context.Cause(ctx))
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("handler failed, leaving message uncommitted",
				"offset", msg.Offset,
				"partition", msg.Partition,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				"offset", msg.Offset,
				"partition", msg.Partition,
				"error", err,
			)
		}
	}
}

// Close stops the reader; a running Start call returns after its current
// fetch fails.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding message: %w", err)
	}
	return out, nil
}
