package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/domain/entity"
	"pushretry/internal/port/secondary"
)

// recordDTO is the Redis-specific representation of a retry record.
// It translates between domain entities and JSON stored in a hash.
type recordDTO struct {
	ID            string          `json:"id"`
	Notification  notificationDTO `json:"notification"`
	Attempt       uint            `json:"attempt"`
	MaxAttempts   uint            `json:"max_attempts"`
	NextRetryAt   time.Time       `json:"next_retry_at"`
	LastError     string          `json:"last_error"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`
	PrevDelayMS   int64           `json:"prev_delay_ms"`
	Seq           uint64          `json:"seq"`
}

type notificationDTO struct {
	ID            string            `json:"id"`
	Tokens        []string          `json:"tokens"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data,omitempty"`
	FailureReason string            `json:"failure_reason"`
	Priority      string            `json:"priority,omitempty"`
	TTLSeconds    int               `json:"ttl_seconds,omitempty"`
	CollapseKey   string            `json:"collapse_key,omitempty"`
}

func toDTO(rec entity.RetryRecord) recordDTO {
	dto := recordDTO{
		ID: rec.ID,
		Notification: notificationDTO{
			ID:            rec.Notification.ID,
			Tokens:        rec.Notification.Tokens,
			Title:         rec.Notification.Title,
			Body:          rec.Notification.Body,
			Data:          rec.Notification.Data,
			FailureReason: rec.Notification.FailureReason,
		},
		Attempt:       rec.Attempt,
		MaxAttempts:   rec.MaxAttempts,
		NextRetryAt:   rec.NextRetryAt,
		LastError:     rec.LastError,
		CreatedAt:     rec.CreatedAt,
		LastAttemptAt: rec.LastAttemptAt,
		PrevDelayMS:   rec.PrevDelay.Milliseconds(),
		Seq:           rec.Seq,
	}
	if opts := rec.Notification.Options; opts != nil {
		dto.Notification.Priority = opts.Priority
		dto.Notification.TTLSeconds = opts.TTLSeconds
		dto.Notification.CollapseKey = opts.CollapseKey
	}
	return dto
}

func toEntity(dto recordDTO) entity.RetryRecord {
	rec := entity.RetryRecord{
		ID: dto.ID,
		Notification: entity.Notification{
			ID:            dto.Notification.ID,
			Tokens:        dto.Notification.Tokens,
			Title:         dto.Notification.Title,
			Body:          dto.Notification.Body,
			Data:          dto.Notification.Data,
			FailureReason: dto.Notification.FailureReason,
		},
		Attempt:       dto.Attempt,
		MaxAttempts:   dto.MaxAttempts,
		NextRetryAt:   dto.NextRetryAt,
		LastError:     dto.LastError,
		CreatedAt:     dto.CreatedAt,
		LastAttemptAt: dto.LastAttemptAt,
		PrevDelay:     time.Duration(dto.PrevDelayMS) * time.Millisecond,
		Seq:           dto.Seq,
	}
	if dto.Notification.Priority != "" || dto.Notification.TTLSeconds != 0 || dto.Notification.CollapseKey != "" {
		rec.Notification.Options = &entity.DeliveryOptions{
			Priority:    dto.Notification.Priority,
			TTLSeconds:  dto.Notification.TTLSeconds,
			CollapseKey: dto.Notification.CollapseKey,
		}
	}
	return rec
}

// SnapshotStore implements secondary.SnapshotStore using a Redis hash
// keyed by notification ID.
type SnapshotStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewSnapshotStore creates a Redis-backed queue snapshot store.
func NewSnapshotStore(client *redis.Client, logger *zap.Logger) secondary.SnapshotStore {
	return &SnapshotStore{
		client: client,
		key:    domain.RedisSnapshotKey,
		logger: logger.Named("redis-snapshot"),
	}
}

// Save atomically replaces the persisted snapshot with the given records.
func (s *SnapshotStore) Save(ctx context.Context, records []entity.RetryRecord) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)

	if len(records) > 0 {
		fields := make(map[string]interface{}, len(records))
		for _, rec := range records {
			data, err := json.Marshal(toDTO(rec))
			if err != nil {
				return fmt.Errorf("marshaling record %s: %w", rec.ID, err)
			}
			fields[rec.ID] = data
		}
		pipe.HSet(ctx, s.key, fields)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving queue snapshot to redis: %w", err)
	}
	return nil
}

// Load returns all persisted records. Corrupt entries are logged and
// skipped rather than failing the whole restore.
func (s *SnapshotStore) Load(ctx context.Context) ([]entity.RetryRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("loading queue snapshot from redis: %w", err)
	}

	records := make([]entity.RetryRecord, 0, len(raw))
	for id, data := range raw {
		var dto recordDTO
		if err := json.Unmarshal([]byte(data), &dto); err != nil {
			s.logger.Warn("invalid record data in redis",
				zap.Error(err),
				zap.String("notification_id", id),
			)
			continue
		}
		records = append(records, toEntity(dto))
	}
	return records, nil
}
