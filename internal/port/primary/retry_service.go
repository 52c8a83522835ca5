package primary

import (
	"context"

	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
)

// RetryService defines the primary port for retry operations exposed to
// driving adapters (HTTP handlers, the interval worker, embedding apps).
type RetryService interface {
	// ScheduleRetry arms or re-arms a retry for a failed notification.
	ScheduleRetry(ctx context.Context, n entity.Notification) (entity.RetryRecord, error)

	// ProcessQueue runs one drain cycle over the due records. At most one
	// cycle runs at a time; a concurrent trigger fails with
	// domain.ErrCycleInProgress.
	ProcessQueue(ctx context.Context) (entity.CycleResult, error)

	// Status returns the retry record for a notification.
	Status(id string) (entity.RetryRecord, error)

	// Statistics summarizes the queue contents.
	Statistics() entity.QueueStatistics

	// BreakerState reports the delivery channel's circuit breaker state.
	BreakerState() breaker.Snapshot

	// Clear removes one record; ClearAll empties the queue.
	Clear(id string) error
	ClearAll() int

	// Config returns the active retry policy; UpdateConfig applies a
	// partial update atomically.
	Config() entity.RetryConfig
	UpdateConfig(u entity.RetryConfigUpdate) (entity.RetryConfig, error)
}
