package pushretry

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pushretry/internal/adapter/primary/worker"
	"pushretry/internal/adapter/secondary/kafkadlq"
	"pushretry/internal/adapter/secondary/pushgateway"
	"pushretry/internal/adapter/secondary/redisstore"
	"pushretry/internal/config"
	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
	"pushretry/internal/domain/queue"
	"pushretry/internal/domain/service"
	"pushretry/internal/port/secondary"
)

// PushRetry is the main entry point for the retry subsystem.
// It can be embedded in other Go applications to retry failed push
// notifications with exponential backoff and circuit breaking.
type PushRetry struct {
	service     *service.RetryService
	worker      *worker.Worker
	redisClient *goredis.Client
	deadLetter  secondary.DeadLetterSink
	logger      *zap.Logger
	config      *Config
}

// Config holds configuration for PushRetry.
type Config struct {
	// Push gateway endpoint. Ignored when Deliver is set.
	GatewayURL     string
	GatewayTimeout time.Duration

	// Deliver, when non-nil, replaces the built-in HTTP gateway client.
	Deliver DeliverFunc

	// Redis persistence for the retry queue. Empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka dead-letter sink for exhausted notifications. Empty broker
	// list disables it.
	KafkaBrokers    []string
	DeadLetterTopic string

	// Worker configuration
	PollInterval time.Duration

	// Retry policy (if nil, defaults apply)
	Policy *Policy

	// Logger (if nil, a default logger will be created)
	Logger *zap.Logger
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GatewayURL:     "http://localhost:9100/push",
		GatewayTimeout: 30 * time.Second,
		PollInterval:   30 * time.Second,
	}
}

// DeliverFunc performs one delivery attempt. ok reports overall success;
// errs carries per-token failure descriptions.
type DeliverFunc func(ctx context.Context, n Notification) (ok bool, errs []string)

type funcDeliverer struct {
	fn DeliverFunc
}

func (d funcDeliverer) Deliver(ctx context.Context, n *entity.Notification) entity.DeliveryResult {
	ok, errs := d.fn(ctx, fromDomain(n))
	return entity.DeliveryResult{Success: ok, Errors: errs}
}

// New creates a new PushRetry instance with the given configuration.
func New(cfg *Config) (*PushRetry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Create logger if not provided
	logger := cfg.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	retryCfg := entity.DefaultRetryConfig()
	if cfg.Policy != nil {
		var err error
		retryCfg, err = cfg.Policy.toDomain()
		if err != nil {
			return nil, fmt.Errorf("invalid retry policy: %w", err)
		}
	}

	// Convert to internal config format
	internalCfg := &config.Config{
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		RedisDB:         cfg.RedisDB,
		KafkaBrokers:    cfg.KafkaBrokers,
		DeadLetterTopic: cfg.DeadLetterTopic,
		GatewayURL:      cfg.GatewayURL,
		GatewayTimeout:  cfg.GatewayTimeout,
		PollInterval:    cfg.PollInterval,
	}

	clock := quartz.NewReal()

	var deliverer secondary.Deliverer
	if cfg.Deliver != nil {
		deliverer = funcDeliverer{fn: cfg.Deliver}
	} else {
		deliverer = pushgateway.NewClient(internalCfg, logger)
	}

	opts := service.Options{AttemptTimeout: cfg.GatewayTimeout}

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		var err error
		redisClient, err = redisstore.NewClient(context.Background(), internalCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating redis client: %w", err)
		}
		opts.Store = redisstore.NewSnapshotStore(redisClient, logger)
	}

	var deadLetter secondary.DeadLetterSink
	if len(cfg.KafkaBrokers) > 0 {
		deadLetter = kafkadlq.NewProducer(internalCfg, logger)
		opts.DeadLetter = deadLetter
	}

	q := queue.New(clock, logger)
	b := breaker.New(retryCfg.CircuitBreakerThreshold, retryCfg.CircuitBreakerResetTimeout, clock, logger)
	svc := service.NewRetryService(q, b, deliverer, retryCfg, clock, logger, opts)

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	wrk := worker.NewWorker(svc, pollInterval, clock, logger)

	return &PushRetry{
		service:     svc,
		worker:      wrk,
		redisClient: redisClient,
		deadLetter:  deadLetter,
		logger:      logger,
		config:      cfg,
	}, nil
}

// Start restores any persisted queue snapshot and begins the retry worker
// in the background. It returns immediately; the worker runs until ctx is
// cancelled.
func (p *PushRetry) Start(ctx context.Context) error {
	if err := p.service.Init(ctx); err != nil {
		return err
	}
	p.logger.Info("starting push retry service")
	go p.worker.Run(ctx)
	return nil
}

// Schedule arms a retry for a failed notification. Calling it again with
// the same notification ID advances the attempt counter instead of adding
// a duplicate.
func (p *PushRetry) Schedule(ctx context.Context, n Notification) error {
	_, err := p.service.ScheduleRetry(ctx, n.toDomain())
	return err
}

// Process runs one queue-processing cycle immediately instead of waiting
// for the next worker tick.
func (p *PushRetry) Process(ctx context.Context) (CycleSummary, error) {
	res, err := p.service.ProcessQueue(ctx)
	if err != nil {
		return CycleSummary{}, err
	}
	return CycleSummary{
		Processed:  res.Processed,
		Successful: res.Successful,
		Failed:     res.Failed,
		Skipped:    res.Skipped,
		Errors:     res.Errors,
	}, nil
}

// Status returns the retry schedule of one notification.
func (p *PushRetry) Status(id string) (Status, error) {
	rec, err := p.service.Status(id)
	if err != nil {
		return Status{}, err
	}
	return Status{
		ID:          rec.ID,
		Attempt:     rec.Attempt,
		MaxAttempts: rec.MaxAttempts,
		NextRetryAt: rec.NextRetryAt,
		LastError:   rec.LastError,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// Stats summarizes the queue contents.
func (p *PushRetry) Stats() Statistics {
	s := p.service.Statistics()
	return Statistics{
		TotalInQueue:   s.TotalInQueue,
		ReadyForRetry:  s.ReadyForRetry,
		ByAttemptCount: s.ByAttemptCount,
	}
}

// SetPolicy replaces the retry policy. In-flight schedules keep their
// already-computed next retry times.
func (p *PushRetry) SetPolicy(policy Policy) error {
	cfg, err := policy.toDomain()
	if err != nil {
		return err
	}
	return p.service.ReplaceConfig(cfg)
}

// Close persists the queue (when Redis is configured) and releases
// resources.
func (p *PushRetry) Close() error {
	p.logger.Info("shutting down push retry service")

	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.service.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("persisting queue: %w", err))
	}

	if p.deadLetter != nil {
		if err := p.deadLetter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing dead-letter producer: %w", err))
		}
	}

	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis client: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// Notification is a push notification that failed delivery and should be
// retried.
type Notification struct {
	// ID uniquely identifies the notification. Re-scheduling the same ID
	// advances its attempt counter.
	ID string

	// Tokens are the device tokens to deliver to.
	Tokens []string

	// Title and Body form the visible payload.
	Title string
	Body  string

	// Data is an optional key/value payload.
	Data map[string]string

	// FailureReason describes why the original delivery failed.
	FailureReason string

	// Optional gateway hints.
	Priority    string
	TTLSeconds  int
	CollapseKey string
}

func (n Notification) toDomain() entity.Notification {
	out := entity.Notification{
		ID:            n.ID,
		Tokens:        n.Tokens,
		Title:         n.Title,
		Body:          n.Body,
		Data:          n.Data,
		FailureReason: n.FailureReason,
	}
	if n.Priority != "" || n.TTLSeconds != 0 || n.CollapseKey != "" {
		out.Options = &entity.DeliveryOptions{
			Priority:    n.Priority,
			TTLSeconds:  n.TTLSeconds,
			CollapseKey: n.CollapseKey,
		}
	}
	return out
}

func fromDomain(n *entity.Notification) Notification {
	out := Notification{
		ID:            n.ID,
		Tokens:        n.Tokens,
		Title:         n.Title,
		Body:          n.Body,
		Data:          n.Data,
		FailureReason: n.FailureReason,
	}
	if n.Options != nil {
		out.Priority = n.Options.Priority
		out.TTLSeconds = n.Options.TTLSeconds
		out.CollapseKey = n.Options.CollapseKey
	}
	return out
}

// Policy controls backoff and circuit breaking.
type Policy struct {
	// MaxAttempts is the number of delivery attempts before a
	// notification is dropped (or dead-lettered).
	MaxAttempts uint

	// InitialDelay and MaxDelay bound the exponential backoff.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// BackoffFactor is the exponential growth factor (>= 1).
	BackoffFactor float64

	// Jitter is one of "none", "full", "equal", "decorrelated".
	Jitter string

	// Circuit breaker tuning.
	BreakerThreshold    uint
	BreakerResetTimeout time.Duration
}

func (p Policy) toDomain() (entity.RetryConfig, error) {
	jt, err := entity.ParseJitterType(p.Jitter)
	if err != nil {
		return entity.RetryConfig{}, err
	}
	cfg := entity.RetryConfig{
		MaxAttempts:                p.MaxAttempts,
		InitialDelay:               p.InitialDelay,
		MaxDelay:                   p.MaxDelay,
		BackoffFactor:              p.BackoffFactor,
		JitterType:                 jt,
		CircuitBreakerThreshold:    p.BreakerThreshold,
		CircuitBreakerResetTimeout: p.BreakerResetTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return entity.RetryConfig{}, err
	}
	return cfg, nil
}

// Status describes one notification's position in the retry schedule.
type Status struct {
	ID          string
	Attempt     uint
	MaxAttempts uint
	NextRetryAt time.Time
	LastError   string
	CreatedAt   time.Time
}

// CycleSummary is the outcome of one processing cycle.
type CycleSummary struct {
	Processed  int
	Successful int
	Failed     int
	Skipped    int
	Errors     []string
}

// Statistics summarizes the retry queue.
type Statistics struct {
	TotalInQueue   int
	ReadyForRetry  int
	ByAttemptCount map[uint]uint
}
