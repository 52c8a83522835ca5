// Package breaker implements the circuit breaker gating delivery attempts
// against the push gateway.
package breaker

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed permits delivery attempts.
	StateClosed State = iota
	// StateOpen blocks delivery attempts until the reset timeout elapses.
	StateOpen
	// StateHalfOpen permits a probing attempt to test gateway recovery.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Snapshot is a point-in-time copy of the breaker state, safe to hand to
// callers.
type Snapshot struct {
	State               State     `json:"state"`
	ConsecutiveFailures uint      `json:"consecutive_failures"`
	OpenedAt            time.Time `json:"opened_at,omitempty"`
}

// Breaker tracks consecutive delivery failures against the gateway. There
// is one breaker per delivery channel; all of its methods are safe for
// concurrent use.
type Breaker struct {
	mu sync.Mutex

	threshold    uint
	resetTimeout time.Duration

	state               State
	consecutiveFailures uint
	openedAt            time.Time

	clock  quartz.Clock
	logger *zap.Logger
}

// New creates a closed breaker that opens after threshold consecutive
// failures and probes again once resetTimeout has elapsed.
func New(threshold uint, resetTimeout time.Duration, clock quartz.Clock, logger *zap.Logger) *Breaker {
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		clock:        clock,
		logger:       logger.Named("circuit-breaker"),
	}
}

// Allow reports whether a delivery attempt may proceed. Consulting an open
// breaker past its reset timeout transitions it to half-open as a side
// effect; the caller's attempt then becomes the recovery probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}

	if b.clock.Since(b.openedAt) < b.resetTimeout {
		return false
	}

	b.state = StateHalfOpen
	b.logger.Info("circuit half-open, probing gateway",
		zap.Duration("open_for", b.clock.Since(b.openedAt)),
	)
	return true
}

// RecordSuccess clears the failure streak. A successful probe closes a
// half-open breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	if b.state != StateClosed {
		b.state = StateClosed
		b.logger.Info("circuit closed, gateway recovered")
	}
}

// RecordFailure counts a failed attempt. A failed probe reopens a
// half-open breaker; reaching the threshold opens a closed one.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.clock.Now()
		b.logger.Warn("probe failed, circuit reopened")
	case StateClosed:
		if b.consecutiveFailures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
			b.logger.Warn("circuit opened",
				zap.Uint("consecutive_failures", b.consecutiveFailures),
				zap.Uint("threshold", b.threshold),
			)
		}
	}
}

// Configure updates the threshold and reset timeout. It affects future
// decisions only; an already-open breaker keeps its openedAt.
func (b *Breaker) Configure(threshold uint, resetTimeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.threshold = threshold
	b.resetTimeout = resetTimeout
}

// Snapshot returns a copy of the current breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
	}
}
