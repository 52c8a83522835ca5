package domain

import "time"

const (
	// RedisSnapshotKey is the hash key holding the persisted retry queue.
	RedisSnapshotKey = "pushretry:queue"

	// DefaultPollInterval is the interval between processing cycles.
	DefaultPollInterval = 30 * time.Second

	// DefaultAttemptTimeout bounds a single delivery attempt so one hung
	// gateway call cannot stall the whole cycle.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultDeadLetterTopic receives notifications that exhausted retries.
	DefaultDeadLetterTopic = "notifications.dead-letter"
)
