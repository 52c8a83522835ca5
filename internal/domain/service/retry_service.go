package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
	"pushretry/internal/domain/queue"
	"pushretry/internal/port/secondary"
)

// RetryService orchestrates the retry queue, the circuit breaker, and the
// delivery port. Both the interval worker and the administrative
// process_queue command funnel through ProcessQueue, so there is exactly
// one notion of a processing cycle.
type RetryService struct {
	queue      *queue.Queue
	breaker    *breaker.Breaker
	deliverer  secondary.Deliverer
	deadLetter secondary.DeadLetterSink
	store      secondary.SnapshotStore

	cfgMu sync.RWMutex
	cfg   entity.RetryConfig

	cycleActive    atomic.Bool
	attemptTimeout time.Duration

	clock  quartz.Clock
	logger *zap.Logger
}

// Options bundles the optional collaborators of a RetryService. Nil fields
// disable the corresponding feature.
type Options struct {
	// DeadLetter receives notifications that exhaust their attempts.
	DeadLetter secondary.DeadLetterSink

	// Store persists the queue across restarts.
	Store secondary.SnapshotStore

	// AttemptTimeout bounds one delivery attempt. Zero selects the
	// default.
	AttemptTimeout time.Duration
}

// NewRetryService creates the service with its dependencies injected.
// cfg must already be valid.
func NewRetryService(
	q *queue.Queue,
	b *breaker.Breaker,
	deliverer secondary.Deliverer,
	cfg entity.RetryConfig,
	clock quartz.Clock,
	logger *zap.Logger,
	opts Options,
) *RetryService {
	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = domain.DefaultAttemptTimeout
	}
	return &RetryService{
		queue:          q,
		breaker:        b,
		deliverer:      deliverer,
		deadLetter:     opts.DeadLetter,
		store:          opts.Store,
		cfg:            cfg,
		attemptTimeout: timeout,
		clock:          clock,
		logger:         logger.Named("retry-service"),
	}
}

// Init restores the persisted queue snapshot, if a store is configured.
func (s *RetryService) Init(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading queue snapshot: %w", err)
	}
	s.queue.Restore(records)
	s.logger.Info("queue snapshot restored", zap.Int("records", len(records)))
	return nil
}

// Shutdown persists the remaining queue state, if a store is configured.
// In-flight cycles should already be cancelled by the caller.
func (s *RetryService) Shutdown(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	records := s.queue.SnapshotAll()
	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("saving queue snapshot: %w", err)
	}
	s.logger.Info("queue snapshot persisted", zap.Int("records", len(records)))
	return nil
}

// ScheduleRetry arms or re-arms a retry for the notification. Exhaustion
// at schedule time routes the notification to the dead-letter sink and is
// surfaced to the caller.
func (s *RetryService) ScheduleRetry(ctx context.Context, n entity.Notification) (entity.RetryRecord, error) {
	rec, err := s.queue.Schedule(n, s.Config())
	if err != nil {
		if errors.Is(err, domain.ErrRetriesExhausted) {
			s.logger.Error("notification exhausted retries",
				zap.String("notification_id", n.ID),
				zap.String("last_error", n.FailureReason),
			)
			s.sendToDeadLetter(ctx, rec)
		}
		return rec, err
	}

	s.logger.Info("retry scheduled",
		zap.String("notification_id", rec.ID),
		zap.Uint("attempt", rec.Attempt),
		zap.Time("next_retry_at", rec.NextRetryAt),
	)
	return rec, nil
}

// ProcessQueue runs one drain cycle: snapshot the due records, gate each
// attempt behind the circuit breaker, deliver, and feed outcomes back into
// the breaker and the queue. Records enqueued while the cycle runs are
// picked up on the next cycle.
func (s *RetryService) ProcessQueue(ctx context.Context) (entity.CycleResult, error) {
	if !s.cycleActive.CompareAndSwap(false, true) {
		return entity.CycleResult{}, domain.ErrCycleInProgress
	}
	defer s.cycleActive.Store(false)

	due := s.queue.Due(s.clock.Now())
	if len(due) == 0 {
		return entity.CycleResult{}, nil
	}

	s.logger.Debug("processing cycle started", zap.Int("due", len(due)))

	var res entity.CycleResult
	for i := range due {
		if err := ctx.Err(); err != nil {
			// Unprocessed records keep their pre-cycle state.
			s.logger.Warn("processing cycle cancelled",
				zap.Int("remaining", len(due)-i),
			)
			return res, err
		}
		s.processRecord(ctx, &due[i], &res)
	}

	s.logger.Info("processing cycle finished",
		zap.Int("processed", res.Processed),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// processRecord handles one due record. Failures here never abort the
// rest of the cycle.
func (s *RetryService) processRecord(ctx context.Context, rec *entity.RetryRecord, res *entity.CycleResult) {
	res.Processed++

	logger := s.logger.With(
		zap.String("notification_id", rec.ID),
		zap.Uint("attempt", rec.Attempt),
	)

	// A tripped breaker must not consume retry attempts.
	if !s.breaker.Allow() {
		res.Skipped++
		logger.Debug("attempt skipped, circuit open")
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	result := s.deliverer.Deliver(attemptCtx, &rec.Notification)
	cancel()

	if result.Success {
		s.breaker.RecordSuccess()
		if err := s.queue.MarkSucceeded(rec.ID); err != nil {
			// The record was cleared mid-flight; delivery still counts.
			logger.Debug("record gone before success could be recorded", zap.Error(err))
		}
		res.Successful++
		logger.Info("notification delivered")
		return
	}

	s.breaker.RecordFailure()

	reason := strings.Join(result.Errors, "; ")
	if reason == "" {
		reason = domain.ErrDeliveryFailed.Error()
	}

	updated, exhausted, err := s.queue.MarkFailed(rec.ID, reason, s.Config())
	if err != nil {
		logger.Debug("record gone before failure could be recorded", zap.Error(err))
		return
	}

	res.Failed++
	if exhausted {
		res.Errors = append(res.Errors,
			fmt.Sprintf("notification %s exhausted after %d attempts: %s", updated.ID, updated.Attempt-1, reason))
		logger.Error("notification exhausted retries",
			zap.Uint("max_attempts", updated.MaxAttempts),
			zap.String("last_error", reason),
		)
		s.sendToDeadLetter(ctx, updated)
		return
	}

	logger.Warn("delivery failed, retry re-armed",
		zap.Time("next_retry_at", updated.NextRetryAt),
		zap.String("error", reason),
	)
}

func (s *RetryService) sendToDeadLetter(ctx context.Context, rec entity.RetryRecord) {
	if s.deadLetter == nil {
		return
	}
	if err := s.deadLetter.Publish(ctx, rec); err != nil {
		s.logger.Error("failed to publish to dead-letter sink",
			zap.String("notification_id", rec.ID),
			zap.Error(err),
		)
	}
}

// Status returns the retry record for a notification.
func (s *RetryService) Status(id string) (entity.RetryRecord, error) {
	return s.queue.Get(id)
}

// Statistics summarizes the queue contents.
func (s *RetryService) Statistics() entity.QueueStatistics {
	return s.queue.Stats()
}

// BreakerState reports the circuit breaker state.
func (s *RetryService) BreakerState() breaker.Snapshot {
	return s.breaker.Snapshot()
}

// Clear removes one record.
func (s *RetryService) Clear(id string) error {
	return s.queue.Clear(id)
}

// ClearAll empties the queue.
func (s *RetryService) ClearAll() int {
	n := s.queue.ClearAll()
	s.logger.Info("retry queue cleared", zap.Int("removed", n))
	return n
}

// Config returns the active retry policy.
func (s *RetryService) Config() entity.RetryConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig applies a partial configuration update atomically. Invalid
// updates are rejected as a unit; pending retry times are never
// recomputed retroactively.
func (s *RetryService) UpdateConfig(u entity.RetryConfigUpdate) (entity.RetryConfig, error) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next, err := s.cfg.Apply(u)
	if err != nil {
		return entity.RetryConfig{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	s.cfg = next
	s.breaker.Configure(next.CircuitBreakerThreshold, next.CircuitBreakerResetTimeout)

	s.logger.Info("retry configuration updated",
		zap.Uint("max_attempts", next.MaxAttempts),
		zap.Duration("initial_delay", next.InitialDelay),
		zap.Duration("max_delay", next.MaxDelay),
		zap.Float64("backoff_factor", next.BackoffFactor),
		zap.String("jitter", string(next.JitterType)),
	)
	return next, nil
}

// ReplaceConfig swaps in a full configuration, e.g. from the config file
// watcher. The config is validated before it is committed.
func (s *RetryService) ReplaceConfig(cfg entity.RetryConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()

	s.breaker.Configure(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerResetTimeout)
	s.logger.Info("retry configuration replaced from file")
	return nil
}
