package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/domain/entity"
)

func testConfig() entity.RetryConfig {
	cfg := entity.DefaultRetryConfig()
	cfg.MaxAttempts = 3
	cfg.InitialDelay = 10 * time.Second
	cfg.MaxDelay = 5 * time.Minute
	cfg.BackoffFactor = 2.0
	cfg.JitterType = entity.JitterNone
	return cfg
}

func testNotification(id string) entity.Notification {
	return entity.Notification{
		ID:            id,
		Tokens:        []string{"device-token-1"},
		Title:         "order shipped",
		Body:          "your order is on its way",
		FailureReason: "gateway timeout",
	}
}

func newTestQueue(t *testing.T) (*Queue, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	return New(clock, zap.NewNop()), clock
}

func TestSchedule_CreatesRecord(t *testing.T) {
	q, clock := newTestQueue(t)

	rec, err := q.Schedule(testNotification("n1"), testConfig())
	require.NoError(t, err)

	assert.Equal(t, "n1", rec.ID)
	assert.Equal(t, uint(1), rec.Attempt)
	assert.Equal(t, uint(3), rec.MaxAttempts)
	assert.Equal(t, "gateway timeout", rec.LastError)
	assert.Equal(t, clock.Now().Add(10*time.Second), rec.NextRetryAt)
}

func TestSchedule_Validation(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Schedule(entity.Notification{Tokens: []string{"tok"}}, testConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)

	_, err = q.Schedule(entity.Notification{ID: "n1"}, testConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidNotification)
}

func TestSchedule_IdempotentReplace(t *testing.T) {
	q, _ := newTestQueue(t)
	cfg := testConfig()

	_, err := q.Schedule(testNotification("n1"), cfg)
	require.NoError(t, err)

	rec, err := q.Schedule(testNotification("n1"), cfg)
	require.NoError(t, err)

	// One record, attempt advanced by the second call.
	assert.Equal(t, uint(2), rec.Attempt)
	assert.Equal(t, 1, q.Stats().TotalInQueue)
}

func TestSchedule_ExhaustionNotRearmed(t *testing.T) {
	q, _ := newTestQueue(t)
	cfg := testConfig()

	for i := 0; i < 3; i++ {
		_, err := q.Schedule(testNotification("n1"), cfg)
		require.NoError(t, err, "schedule %d should still have attempts", i+1)
	}

	_, err := q.Schedule(testNotification("n1"), cfg)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, 0, q.Stats().TotalInQueue, "exhausted record must not stay queued")
}

func TestDue_OrderAndSnapshotSemantics(t *testing.T) {
	q, clock := newTestQueue(t)
	cfg := testConfig()

	// Advancing the clock between schedules spreads the due times out.
	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Schedule(testNotification(id), cfg)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	assert.Empty(t, q.Due(clock.Now()), "nothing due before the delay elapses")

	due := q.Due(clock.Now().Add(time.Hour))
	require.Len(t, due, 3)
	assert.Equal(t, "a", due[0].ID)
	assert.Equal(t, "b", due[1].ID)
	assert.Equal(t, "c", due[2].ID)

	// The snapshot is a copy: removing records afterwards must not
	// disturb it.
	require.NoError(t, q.Clear("b"))
	assert.Equal(t, "b", due[1].ID)
	assert.Len(t, due, 3)
}

func TestDue_TieBrokenByInsertionOrder(t *testing.T) {
	q, clock := newTestQueue(t)
	cfg := testConfig()

	// Identical delays produce identical due times.
	for _, id := range []string{"z", "m", "a"} {
		_, err := q.Schedule(testNotification(id), cfg)
		require.NoError(t, err)
	}

	due := q.Due(clock.Now().Add(time.Hour))
	require.Len(t, due, 3)
	assert.Equal(t, []string{"z", "m", "a"}, []string{due[0].ID, due[1].ID, due[2].ID})
}

func TestMarkSucceeded(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Schedule(testNotification("n1"), testConfig())
	require.NoError(t, err)

	require.NoError(t, q.MarkSucceeded("n1"))
	assert.Equal(t, 0, q.Stats().TotalInQueue)

	assert.ErrorIs(t, q.MarkSucceeded("n1"), domain.ErrRecordNotFound)
}

func TestMarkFailed_RearmsUntilExhausted(t *testing.T) {
	q, clock := newTestQueue(t)
	cfg := testConfig()

	_, err := q.Schedule(testNotification("n1"), cfg)
	require.NoError(t, err)

	// Attempt 1 -> 2: re-armed with the next backoff step.
	rec, exhausted, err := q.MarkFailed("n1", "boom", cfg)
	require.NoError(t, err)
	assert.False(t, exhausted)
	assert.Equal(t, uint(2), rec.Attempt)
	assert.Equal(t, "boom", rec.LastError)
	assert.Equal(t, clock.Now().Add(20*time.Second), rec.NextRetryAt)

	// Attempt 2 -> 3: still re-armed.
	rec, exhausted, err = q.MarkFailed("n1", "boom again", cfg)
	require.NoError(t, err)
	assert.False(t, exhausted)
	assert.Equal(t, uint(3), rec.Attempt)

	// Attempt 3 -> 4 exceeds maxAttempts: removed and exhausted.
	rec, exhausted, err = q.MarkFailed("n1", "final failure", cfg)
	require.NoError(t, err)
	assert.True(t, exhausted)
	assert.Equal(t, "final failure", rec.LastError)
	assert.Equal(t, 0, q.Stats().TotalInQueue)
}

func TestMarkFailed_NotFound(t *testing.T) {
	q, _ := newTestQueue(t)
	_, _, err := q.MarkFailed("ghost", "err", testConfig())
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestStats_ByAttemptCount(t *testing.T) {
	q, clock := newTestQueue(t)
	cfg := testConfig()
	cfg.MaxAttempts = 5

	// Build records with attempts {1, 1, 2, 3}.
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := q.Schedule(testNotification(id), cfg)
		require.NoError(t, err)
	}
	_, _, err := q.MarkFailed("c", "x", cfg)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, err = q.MarkFailed("d", "x", cfg)
		require.NoError(t, err)
	}

	stats := q.Stats()
	assert.Equal(t, 4, stats.TotalInQueue)
	assert.Equal(t, map[uint]uint{1: 2, 2: 1, 3: 1}, stats.ByAttemptCount)
	assert.Equal(t, 0, stats.ReadyForRetry)

	clock.Advance(time.Hour)
	assert.Equal(t, 4, q.Stats().ReadyForRetry)
}

func TestGet(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Get("missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = q.Schedule(testNotification("n1"), testConfig())
	require.NoError(t, err)

	rec, err := q.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", rec.ID)
}

func TestClearAll(t *testing.T) {
	q, _ := newTestQueue(t)
	cfg := testConfig()

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Schedule(testNotification(id), cfg)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, q.ClearAll())
	assert.Equal(t, 0, q.Stats().TotalInQueue)
	assert.Equal(t, 0, q.ClearAll())
}

func TestRestoreAndSnapshotRoundTrip(t *testing.T) {
	q, clock := newTestQueue(t)
	cfg := testConfig()

	for _, id := range []string{"a", "b"} {
		_, err := q.Schedule(testNotification(id), cfg)
		require.NoError(t, err)
	}
	snapshot := q.SnapshotAll()
	require.Len(t, snapshot, 2)

	restored := New(clock, zap.NewNop())
	restored.Restore(snapshot)
	assert.Equal(t, 2, restored.Stats().TotalInQueue)

	rec, err := restored.Get("a")
	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.Attempt)

	// New records slot in after the restored sequence numbers.
	fresh, err := restored.Schedule(testNotification("c"), cfg)
	require.NoError(t, err)
	for _, old := range snapshot {
		assert.Greater(t, fresh.Seq, old.Seq)
	}
}

func TestAttemptMonotonic(t *testing.T) {
	q, _ := newTestQueue(t)
	cfg := testConfig()
	cfg.MaxAttempts = 10

	_, err := q.Schedule(testNotification("n1"), cfg)
	require.NoError(t, err)

	last := uint(0)
	for i := 0; i < 9; i++ {
		rec, exhausted, err := q.MarkFailed("n1", "err", cfg)
		if errors.Is(err, domain.ErrRecordNotFound) || exhausted {
			break
		}
		require.NoError(t, err)
		require.Greater(t, rec.Attempt, last)
		last = rec.Attempt
	}
}
