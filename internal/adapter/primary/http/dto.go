package http

import (
	"time"

	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
)

// ScheduleRetryRequest is the payload for POST /retries.
type ScheduleRetryRequest struct {
	ID          string            `json:"id"`
	Tokens      []string          `json:"tokens"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Error       string            `json:"error"`
	Priority    string            `json:"priority,omitempty"`
	TTLSeconds  int               `json:"ttl_seconds,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

// toEntity converts a ScheduleRetryRequest to a domain notification.
func (r *ScheduleRetryRequest) toEntity() entity.Notification {
	n := entity.Notification{
		ID:            r.ID,
		Tokens:        r.Tokens,
		Title:         r.Title,
		Body:          r.Body,
		Data:          r.Data,
		FailureReason: r.Error,
	}
	if r.Priority != "" || r.TTLSeconds != 0 || r.CollapseKey != "" {
		n.Options = &entity.DeliveryOptions{
			Priority:    r.Priority,
			TTLSeconds:  r.TTLSeconds,
			CollapseKey: r.CollapseKey,
		}
	}
	return n
}

// RecordResponse describes one retry record.
type RecordResponse struct {
	ID            string    `json:"id"`
	Attempt       uint      `json:"attempt"`
	MaxAttempts   uint      `json:"max_attempts"`
	NextRetryAt   time.Time `json:"next_retry_at"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}

func toRecordResponse(rec entity.RetryRecord) RecordResponse {
	return RecordResponse{
		ID:            rec.ID,
		Attempt:       rec.Attempt,
		MaxAttempts:   rec.MaxAttempts,
		NextRetryAt:   rec.NextRetryAt,
		LastError:     rec.LastError,
		CreatedAt:     rec.CreatedAt,
		LastAttemptAt: rec.LastAttemptAt,
	}
}

// StatisticsResponse is returned by GET /retries.
type StatisticsResponse struct {
	Queue   entity.QueueStatistics `json:"queue"`
	Breaker BreakerResponse        `json:"circuit_breaker"`
}

// BreakerResponse describes the circuit breaker state.
type BreakerResponse struct {
	State               string `json:"state"`
	ConsecutiveFailures uint   `json:"consecutive_failures"`
	OpenedAt            string `json:"opened_at,omitempty"`
}

func toBreakerResponse(snap breaker.Snapshot) BreakerResponse {
	resp := BreakerResponse{
		State:               snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
	}
	if !snap.OpenedAt.IsZero() {
		resp.OpenedAt = snap.OpenedAt.Format(time.RFC3339)
	}
	return resp
}

// CommandRequest is the payload for POST /retries/commands.
type CommandRequest struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// ClearResponse reports how many records a clear command removed.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// ConfigResponse mirrors the active retry configuration.
type ConfigResponse struct {
	MaxAttempts                uint    `json:"max_attempts"`
	InitialDelay               string  `json:"initial_delay"`
	MaxDelay                   string  `json:"max_delay"`
	BackoffFactor              float64 `json:"backoff_factor"`
	JitterType                 string  `json:"jitter_type"`
	CircuitBreakerThreshold    uint    `json:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout string  `json:"circuit_breaker_reset_timeout"`
}

func toConfigResponse(cfg entity.RetryConfig) ConfigResponse {
	return ConfigResponse{
		MaxAttempts:                cfg.MaxAttempts,
		InitialDelay:               cfg.InitialDelay.String(),
		MaxDelay:                   cfg.MaxDelay.String(),
		BackoffFactor:              cfg.BackoffFactor,
		JitterType:                 string(cfg.JitterType),
		CircuitBreakerThreshold:    cfg.CircuitBreakerThreshold,
		CircuitBreakerResetTimeout: cfg.CircuitBreakerResetTimeout.String(),
	}
}

// ConfigUpdateRequest is the payload for PUT /retries/config. Omitted
// fields keep their previous value; durations use Go syntax ("30s").
type ConfigUpdateRequest struct {
	MaxAttempts                *uint    `json:"max_attempts,omitempty"`
	InitialDelay               *string  `json:"initial_delay,omitempty"`
	MaxDelay                   *string  `json:"max_delay,omitempty"`
	BackoffFactor              *float64 `json:"backoff_factor,omitempty"`
	JitterType                 *string  `json:"jitter_type,omitempty"`
	CircuitBreakerThreshold    *uint    `json:"circuit_breaker_threshold,omitempty"`
	CircuitBreakerResetTimeout *string  `json:"circuit_breaker_reset_timeout,omitempty"`
}

// toUpdate converts the request to a domain update, parsing durations and
// the jitter type.
func (r *ConfigUpdateRequest) toUpdate() (entity.RetryConfigUpdate, error) {
	var u entity.RetryConfigUpdate
	u.MaxAttempts = r.MaxAttempts
	u.BackoffFactor = r.BackoffFactor
	u.CircuitBreakerThreshold = r.CircuitBreakerThreshold

	if r.InitialDelay != nil {
		d, err := time.ParseDuration(*r.InitialDelay)
		if err != nil {
			return u, err
		}
		u.InitialDelay = &d
	}
	if r.MaxDelay != nil {
		d, err := time.ParseDuration(*r.MaxDelay)
		if err != nil {
			return u, err
		}
		u.MaxDelay = &d
	}
	if r.CircuitBreakerResetTimeout != nil {
		d, err := time.ParseDuration(*r.CircuitBreakerResetTimeout)
		if err != nil {
			return u, err
		}
		u.CircuitBreakerResetTimeout = &d
	}
	if r.JitterType != nil {
		jt, err := entity.ParseJitterType(*r.JitterType)
		if err != nil {
			return u, err
		}
		u.JitterType = &jt
	}
	return u, nil
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
