package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxHandleRetries = 5

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader       KafkaReader
	logger       *zap.Logger
	handler      Handler
	newBackOff   func() backoff.BackOff
	fetchBackOff func() backoff.BackOff
}

// NewConsumer joins groupID on topic.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		Dialer:         kafka.DefaultDialer,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	}), logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		logger: logger.Named("kafka_consumer"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		fetchBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

func (c *Consumer) RegisterHandler(fn Handler) {
	c.handler = fn
}

// Run blocks until ctx is done or the reader is closed. Messages are
// committed once handled; a message whose handler keeps failing is logged and
// committed anyway so one bad event cannot wedge the partition. Fetch errors
// are retried with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("kafka consumer has no handler")
	}
	retry := c.fetchBackOff()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("Kafka reader closed")
				return nil
			}
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				return err
			}
			c.logger.Error("Failed to fetch message", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to commit message",
				zap.Error(err),
				zap.Int64("offset", msg.Offset),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to parse event",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		return
	}

	err := backoff.Retry(func() error {
		return c.handler(ctx, event)
	}, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), maxHandleRetries), ctx))
	if err != nil {
		c.logger.Error("Failed to handle event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
		)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
