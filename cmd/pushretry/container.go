package main

import (
	"context"
	"net/http"

	"github.com/coder/quartz"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	httphandler "pushretry/internal/adapter/primary/http"
	"pushretry/internal/adapter/primary/worker"
	"pushretry/internal/adapter/secondary/kafkadlq"
	"pushretry/internal/adapter/secondary/pushgateway"
	"pushretry/internal/adapter/secondary/redisstore"
	"pushretry/internal/config"
	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
	"pushretry/internal/domain/queue"
	"pushretry/internal/domain/service"
	"pushretry/internal/port/primary"
	"pushretry/internal/port/secondary"
)

func buildContainer(ctx context.Context) (*dig.Container, error) {
	c := dig.New()

	// --- Configuration ---
	if err := c.Provide(config.New); err != nil {
		return nil, err
	}

	// Retry policy: file-based when configured, defaults otherwise.
	if err := c.Provide(func(cfg *config.Config) (entity.RetryConfig, error) {
		if cfg.RetryConfigFile == "" {
			return entity.DefaultRetryConfig(), nil
		}
		return config.LoadRetryConfig(cfg.RetryConfigFile)
	}); err != nil {
		return nil, err
	}

	// --- Logger ---
	if err := c.Provide(newLogger); err != nil {
		return nil, err
	}

	// --- Clock ---
	if err := c.Provide(func() quartz.Clock {
		return quartz.NewReal()
	}); err != nil {
		return nil, err
	}

	// --- Secondary Adapters (infrastructure) ---

	// Redis client
	if err := c.Provide(func(cfg *config.Config, logger *zap.Logger) (*goredis.Client, error) {
		return redisstore.NewClient(ctx, cfg, logger)
	}); err != nil {
		return nil, err
	}

	// Queue snapshot store (implements secondary.SnapshotStore)
	if err := c.Provide(func(client *goredis.Client, logger *zap.Logger) secondary.SnapshotStore {
		return redisstore.NewSnapshotStore(client, logger)
	}); err != nil {
		return nil, err
	}

	// Redis health check (implements secondary.HealthChecker)
	if err := c.Provide(func(client *goredis.Client) secondary.HealthChecker {
		return redisstore.NewHealthCheck(client)
	}); err != nil {
		return nil, err
	}

	// Collect all health checks
	if err := c.Provide(func(redisCheck secondary.HealthChecker) []secondary.HealthChecker {
		return []secondary.HealthChecker{redisCheck}
	}); err != nil {
		return nil, err
	}

	// Push gateway deliverer
	if err := c.Provide(pushgateway.NewClient); err != nil {
		return nil, err
	}

	// Kafka dead-letter sink
	if err := c.Provide(kafkadlq.NewProducer); err != nil {
		return nil, err
	}

	// --- Domain ---

	if err := c.Provide(queue.New); err != nil {
		return nil, err
	}

	if err := c.Provide(func(cfg entity.RetryConfig, clock quartz.Clock, logger *zap.Logger) *breaker.Breaker {
		return breaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerResetTimeout, clock, logger)
	}); err != nil {
		return nil, err
	}

	if err := c.Provide(func(
		q *queue.Queue,
		b *breaker.Breaker,
		deliverer secondary.Deliverer,
		deadLetter secondary.DeadLetterSink,
		store secondary.SnapshotStore,
		cfg entity.RetryConfig,
		appCfg *config.Config,
		clock quartz.Clock,
		logger *zap.Logger,
	) *service.RetryService {
		return service.NewRetryService(q, b, deliverer, cfg, clock, logger, service.Options{
			DeadLetter:     deadLetter,
			Store:          store,
			AttemptTimeout: appCfg.GatewayTimeout,
		})
	}); err != nil {
		return nil, err
	}

	// Bind concrete RetryService to the primary port interface
	if err := c.Provide(func(s *service.RetryService) primary.RetryService {
		return s
	}); err != nil {
		return nil, err
	}

	// --- Primary Adapters ---

	// HTTP router
	if err := c.Provide(func(svc primary.RetryService, checks []secondary.HealthChecker, logger *zap.Logger) http.Handler {
		return httphandler.NewRouter(svc, checks, logger)
	}); err != nil {
		return nil, err
	}

	// Worker
	if err := c.Provide(func(svc primary.RetryService, cfg *config.Config, clock quartz.Clock, logger *zap.Logger) *worker.Worker {
		return worker.NewWorker(svc, cfg.PollInterval, clock, logger)
	}); err != nil {
		return nil, err
	}

	return c, nil
}
