package entity

import "time"

// RetryRecord tracks one notification's position in the retry schedule.
// Records are owned exclusively by the retry queue; everything handed out
// of the queue is a copy.
type RetryRecord struct {
	ID            string
	Notification  Notification
	Attempt       uint
	MaxAttempts   uint
	NextRetryAt   time.Time
	LastError     string
	CreatedAt     time.Time
	LastAttemptAt time.Time

	// PrevDelay is the most recently computed backoff delay for this
	// record. Decorrelated jitter needs it as history.
	PrevDelay time.Duration

	// Seq is the insertion sequence number, used to break due-time ties
	// deterministically.
	Seq uint64
}

// CycleResult summarizes one queue-processing cycle.
type CycleResult struct {
	Processed  int      `json:"processed"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// QueueStatistics describes the current contents of the retry queue.
type QueueStatistics struct {
	TotalInQueue   int           `json:"total_in_queue"`
	ReadyForRetry  int           `json:"ready_for_retry"`
	ByAttemptCount map[uint]uint `json:"by_attempt_count"`
}
