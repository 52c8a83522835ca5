// Package backoff computes retry delays with exponential growth and
// configurable jitter. It is pure: no state, no I/O.
package backoff

import (
	"math"
	"math/rand"
	"time"

	"pushretry/internal/domain/entity"
)

// Delay returns the delay before retry attempt `attempt` (1-indexed).
//
// The base delay is min(initialDelay * backoffFactor^(attempt-1), maxDelay),
// then the configured jitter transform is applied. prev is the previously
// computed delay for the same notification; only decorrelated jitter
// consults it, and a non-positive prev falls back to the base delay
// (the initialization case for a record's first attempt).
//
// The result is always within [0, maxDelay].
func Delay(cfg entity.RetryConfig, attempt uint, prev time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
	// A negative base means the float math overflowed.
	if base > cfg.MaxDelay || base < 0 {
		base = cfg.MaxDelay
	}

	var delay time.Duration
	switch cfg.JitterType {
	case entity.JitterFull:
		delay = randBetween(0, base)
	case entity.JitterEqual:
		delay = base/2 + randBetween(0, base/2)
	case entity.JitterDecorrelated:
		if prev <= 0 {
			prev = base
		}
		delay = randBetween(cfg.InitialDelay, 3*prev)
	default:
		delay = base
	}

	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// randBetween returns a uniform-random duration in [lo, hi].
func randBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}
