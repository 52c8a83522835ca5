// Package queue holds the in-memory retry queue. It owns every RetryRecord;
// callers only ever see copies.
package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/domain/backoff"
	"pushretry/internal/domain/entity"
)

// Queue keeps at most one retry record per notification ID. A single mutex
// guards the map, so mutations for the same notification never race.
type Queue struct {
	mu      sync.Mutex
	records map[string]*entity.RetryRecord
	nextSeq uint64

	clock  quartz.Clock
	logger *zap.Logger
}

// New creates an empty retry queue.
func New(clock quartz.Clock, logger *zap.Logger) *Queue {
	return &Queue{
		records: make(map[string]*entity.RetryRecord),
		clock:   clock,
		logger:  logger.Named("retry-queue"),
	}
}

// Schedule arms (or re-arms) a retry for the notification. Scheduling the
// same notification ID again replaces the existing record in place: the
// attempt counter advances and the next retry time is recomputed with the
// current config. A record whose attempts are used up is removed and
// reported as exhausted instead of being re-armed.
func (q *Queue) Schedule(n entity.Notification, cfg entity.RetryConfig) (entity.RetryRecord, error) {
	if n.ID == "" {
		return entity.RetryRecord{}, fmt.Errorf("%w: missing notification ID", domain.ErrInvalidNotification)
	}
	if len(n.Tokens) == 0 {
		return entity.RetryRecord{}, fmt.Errorf("%w: no recipient tokens", domain.ErrInvalidNotification)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()

	rec, ok := q.records[n.ID]
	if !ok {
		delay := backoff.Delay(cfg, 1, 0)
		rec = &entity.RetryRecord{
			ID:           n.ID,
			Notification: n,
			Attempt:      1,
			MaxAttempts:  cfg.MaxAttempts,
			NextRetryAt:  now.Add(delay),
			LastError:    n.FailureReason,
			CreatedAt:    now,
			PrevDelay:    delay,
			Seq:          q.nextSeq,
		}
		q.nextSeq++
		q.records[n.ID] = rec

		q.logger.Debug("retry scheduled",
			zap.String("notification_id", n.ID),
			zap.Duration("delay", delay),
		)
		return *rec, nil
	}

	rec.Attempt++
	if rec.Attempt > rec.MaxAttempts {
		delete(q.records, n.ID)
		q.logger.Warn("notification exhausted retries at schedule time",
			zap.String("notification_id", n.ID),
			zap.Uint("max_attempts", rec.MaxAttempts),
		)
		return *rec, fmt.Errorf("%w: notification %s", domain.ErrRetriesExhausted, n.ID)
	}

	delay := backoff.Delay(cfg, rec.Attempt, rec.PrevDelay)
	rec.Notification = n
	rec.NextRetryAt = now.Add(delay)
	rec.LastError = n.FailureReason
	rec.LastAttemptAt = now
	rec.PrevDelay = delay

	q.logger.Debug("retry rescheduled",
		zap.String("notification_id", n.ID),
		zap.Uint("attempt", rec.Attempt),
		zap.Duration("delay", delay),
	)
	return *rec, nil
}

// Due returns copies of all records whose retry time has arrived, oldest
// due first with insertion order breaking ties. Mutating the queue after
// the call does not affect the returned slice.
func (q *Queue) Due(now time.Time) []entity.RetryRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]entity.RetryRecord, 0, len(q.records))
	for _, rec := range q.records {
		if !rec.NextRetryAt.After(now) {
			due = append(due, *rec)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].NextRetryAt.Equal(due[j].NextRetryAt) {
			return due[i].Seq < due[j].Seq
		}
		return due[i].NextRetryAt.Before(due[j].NextRetryAt)
	})
	return due
}

// MarkSucceeded retires the record after a successful delivery.
func (q *Queue) MarkSucceeded(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.records[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	delete(q.records, id)
	return nil
}

// MarkFailed records a failed delivery attempt. If attempts remain, the
// record stays queued with a freshly computed retry time and the updated
// copy is returned with exhausted=false. Otherwise the record is removed
// and exhausted=true.
func (q *Queue) MarkFailed(id, lastError string, cfg entity.RetryConfig) (entity.RetryRecord, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return entity.RetryRecord{}, false, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}

	now := q.clock.Now()
	rec.Attempt++
	rec.LastError = lastError
	rec.LastAttemptAt = now

	if rec.Attempt > rec.MaxAttempts {
		delete(q.records, id)
		return *rec, true, nil
	}

	delay := backoff.Delay(cfg, rec.Attempt, rec.PrevDelay)
	rec.PrevDelay = delay
	rec.NextRetryAt = now.Add(delay)
	return *rec, false, nil
}

// Get returns a copy of the record for the given notification ID.
func (q *Queue) Get(id string) (entity.RetryRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return entity.RetryRecord{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return *rec, nil
}

// Stats summarizes the queue contents.
func (q *Queue) Stats() entity.QueueStatistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	stats := entity.QueueStatistics{
		TotalInQueue:   len(q.records),
		ByAttemptCount: make(map[uint]uint),
	}
	for _, rec := range q.records {
		if !rec.NextRetryAt.After(now) {
			stats.ReadyForRetry++
		}
		stats.ByAttemptCount[rec.Attempt]++
	}
	return stats
}

// Clear removes one record.
func (q *Queue) Clear(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.records[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	delete(q.records, id)
	return nil
}

// ClearAll empties the queue and returns how many records were removed.
func (q *Queue) ClearAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.records)
	q.records = make(map[string]*entity.RetryRecord)
	return n
}

// Restore loads persisted records, e.g. at process startup. Records keep
// their attempt counters and retry times; the insertion sequence resumes
// past the highest restored value.
func (q *Queue) Restore(records []entity.RetryRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			continue
		}
		q.records[rec.ID] = &rec
		if rec.Seq >= q.nextSeq {
			q.nextSeq = rec.Seq + 1
		}
	}
}

// SnapshotAll returns copies of every record, for persistence at shutdown.
func (q *Queue) SnapshotAll() []entity.RetryRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]entity.RetryRecord, 0, len(q.records))
	for _, rec := range q.records {
		out = append(out, *rec)
	}
	return out
}
