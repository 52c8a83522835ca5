package secondary

import (
	"context"

	"pushretry/internal/domain/entity"
)

// DeadLetterSink defines the secondary port for routing notifications
// that exhausted their retry attempts (e.g., to a Kafka topic).
type DeadLetterSink interface {
	// Publish records an exhausted notification.
	Publish(ctx context.Context, rec entity.RetryRecord) error

	// Close releases any resources held by the sink.
	Close() error
}
