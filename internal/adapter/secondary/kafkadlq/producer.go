// Package kafkadlq routes notifications that exhausted their retry
// attempts to a Kafka dead-letter topic.
package kafkadlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"pushretry/internal/config"
	"pushretry/internal/domain/entity"
	"pushretry/internal/port/secondary"
)

// deadLetterEvent is the message published for an exhausted notification.
type deadLetterEvent struct {
	NotificationID string            `json:"notification_id"`
	Tokens         []string          `json:"tokens"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	Attempts       uint              `json:"attempts"`
	LastError      string            `json:"last_error"`
	CreatedAt      time.Time         `json:"created_at"`
	ExhaustedAt    time.Time         `json:"exhausted_at"`
}

// Producer implements secondary.DeadLetterSink using segmentio/kafka-go.
// It maintains a single writer connection for all publishes.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// NewProducer creates a Kafka dead-letter producer from the application
// configuration.
func NewProducer(cfg *config.Config, logger *zap.Logger) secondary.DeadLetterSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	logger.Info("dead-letter producer initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.DeadLetterTopic),
	)

	return &Producer{
		writer: writer,
		topic:  cfg.DeadLetterTopic,
		logger: logger.Named("kafka-dlq"),
	}
}

// Publish writes the exhausted notification to the dead-letter topic.
func (p *Producer) Publish(ctx context.Context, rec entity.RetryRecord) error {
	event := deadLetterEvent{
		NotificationID: rec.ID,
		Tokens:         rec.Notification.Tokens,
		Title:          rec.Notification.Title,
		Body:           rec.Notification.Body,
		Data:           rec.Notification.Data,
		Attempts:       rec.MaxAttempts,
		LastError:      rec.LastError,
		CreatedAt:      rec.CreatedAt,
		ExhaustedAt:    rec.LastAttemptAt,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling dead-letter event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(rec.ID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to dead-letter topic %q: %w", p.topic, err)
	}

	p.logger.Debug("exhausted notification published",
		zap.String("notification_id", rec.ID),
		zap.String("topic", p.topic),
	)
	return nil
}

// Close shuts down the Kafka writer and releases its resources.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
