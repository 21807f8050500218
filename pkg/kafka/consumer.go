// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Events travel as JSON; consumers hand each message to a
// MessageHandler and retry it in place until it succeeds, then commit.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

var handlerRetry = resilience.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2,
}

// NewConsumer creates a Consumer for topic in the given consumer group.
func NewConsumer(cfg config.KafkaConfig, topic, group string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
		retry:   handlerRetry,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled. Group offsets are positional: committing a later message
// would acknowledge any failed one before it on the same partition, so a
// failing message blocks its partition until the handler succeeds.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.process(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Info("consumer stopping before commit",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"reason", err,
			)
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// process runs the handler until it succeeds. It only returns an error once
// ctx has ended, in which case the message stays uncommitted.
func (c *Consumer) process(ctx context.Context, key, value []byte) error {
	for {
		err := resilience.Retry(ctx, "kafka-handler", c.retry, func() error {
			return c.handler(ctx, key, value)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("message still failing, holding partition", "key", string(key), "error", err)
		timer := time.NewTimer(c.retry.MaxDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// HandleJSON adapts a typed handler. Messages that do not decode are logged
// and acknowledged, since redelivering them cannot succeed.
func HandleJSON[T any](logger *slog.Logger, fn func(ctx context.Context, event T) error) MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := DecodeJSON[T](value)
		if err != nil {
			logger.Error("dropping undecodable message", "key", string(key), "error", err)
			return nil
		}
		return fn(ctx, event)
	}
}
