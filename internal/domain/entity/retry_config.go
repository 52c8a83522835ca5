package entity

import (
	"fmt"
	"strings"
	"time"
)

// JitterType selects the randomization applied to backoff delays.
type JitterType string

const (
	JitterNone         JitterType = "none"
	JitterFull         JitterType = "full"
	JitterEqual        JitterType = "equal"
	JitterDecorrelated JitterType = "decorrelated"
)

// ParseJitterType parses a jitter type name, case-insensitively.
func ParseJitterType(s string) (JitterType, error) {
	switch JitterType(strings.ToLower(s)) {
	case JitterNone:
		return JitterNone, nil
	case JitterFull:
		return JitterFull, nil
	case JitterEqual:
		return JitterEqual, nil
	case JitterDecorrelated:
		return JitterDecorrelated, nil
	default:
		return "", fmt.Errorf("unknown jitter type %q", s)
	}
}

// MaxAttemptsLimit caps how many retry attempts may be configured.
const MaxAttemptsLimit = 100

// RetryConfig is the process-wide retry policy. It is read by every
// processing cycle and replaced atomically by configuration updates.
type RetryConfig struct {
	MaxAttempts                uint
	InitialDelay               time.Duration
	MaxDelay                   time.Duration
	BackoffFactor              float64
	JitterType                 JitterType
	CircuitBreakerThreshold    uint
	CircuitBreakerResetTimeout time.Duration
}

// DefaultRetryConfig returns the retry policy used when no configuration
// file or update has been applied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:                3,
		InitialDelay:               1 * time.Minute,
		MaxDelay:                   30 * time.Minute,
		BackoffFactor:              2.0,
		JitterType:                 JitterFull,
		CircuitBreakerThreshold:    5,
		CircuitBreakerResetTimeout: 1 * time.Minute,
	}
}

// Validate checks the configuration as a unit. A config that fails
// validation is never applied, not even partially.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("max_attempts must be at most %d, got %d", MaxAttemptsLimit, c.MaxAttempts)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("initial_delay must be positive, got %s", c.InitialDelay)
	}
	if c.MaxDelay <= 0 {
		return fmt.Errorf("max_delay must be positive, got %s", c.MaxDelay)
	}
	if c.InitialDelay > c.MaxDelay {
		return fmt.Errorf("initial_delay %s exceeds max_delay %s", c.InitialDelay, c.MaxDelay)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be >= 1, got %g", c.BackoffFactor)
	}
	if _, err := ParseJitterType(string(c.JitterType)); err != nil {
		return err
	}
	if c.CircuitBreakerThreshold < 1 {
		return fmt.Errorf("circuit_breaker_threshold must be at least 1, got %d", c.CircuitBreakerThreshold)
	}
	if c.CircuitBreakerResetTimeout <= 0 {
		return fmt.Errorf("circuit_breaker_reset_timeout must be positive, got %s", c.CircuitBreakerResetTimeout)
	}
	return nil
}

// RetryConfigUpdate is a partial configuration change. Nil fields keep
// their previous value.
type RetryConfigUpdate struct {
	MaxAttempts                *uint
	InitialDelay               *time.Duration
	MaxDelay                   *time.Duration
	BackoffFactor              *float64
	JitterType                 *JitterType
	CircuitBreakerThreshold    *uint
	CircuitBreakerResetTimeout *time.Duration
}

// Apply overlays the update on c and validates the result. The receiver is
// not modified; the merged config is returned only if it is valid.
func (c RetryConfig) Apply(u RetryConfigUpdate) (RetryConfig, error) {
	next := c
	if u.MaxAttempts != nil {
		next.MaxAttempts = *u.MaxAttempts
	}
	if u.InitialDelay != nil {
		next.InitialDelay = *u.InitialDelay
	}
	if u.MaxDelay != nil {
		next.MaxDelay = *u.MaxDelay
	}
	if u.BackoffFactor != nil {
		next.BackoffFactor = *u.BackoffFactor
	}
	if u.JitterType != nil {
		next.JitterType = *u.JitterType
	}
	if u.CircuitBreakerThreshold != nil {
		next.CircuitBreakerThreshold = *u.CircuitBreakerThreshold
	}
	if u.CircuitBreakerResetTimeout != nil {
		next.CircuitBreakerResetTimeout = *u.CircuitBreakerResetTimeout
	}
	if err := next.Validate(); err != nil {
		return RetryConfig{}, err
	}
	return next, nil
}
