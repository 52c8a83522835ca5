package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	yaml "go.yaml.in/yaml/v3"

	"pushretry/internal/domain/entity"
)

// retryFileSchema is the YAML shape of the retry policy file. Durations
// use Go syntax ("30s", "5m").
type retryFileSchema struct {
	MaxAttempts                *uint    `yaml:"max_attempts"`
	InitialDelay               *string  `yaml:"initial_delay"`
	MaxDelay                   *string  `yaml:"max_delay"`
	BackoffFactor              *float64 `yaml:"backoff_factor"`
	JitterType                 *string  `yaml:"jitter_type"`
	CircuitBreakerThreshold    *uint    `yaml:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout *string  `yaml:"circuit_breaker_reset_timeout"`
}

// LoadRetryConfig reads and validates a retry policy file. Fields absent
// from the file keep the default value.
func LoadRetryConfig(path string) (entity.RetryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.RetryConfig{}, fmt.Errorf("reading retry config: %w", err)
	}

	var schema retryFileSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return entity.RetryConfig{}, fmt.Errorf("parsing retry config: %w", err)
	}

	cfg := entity.DefaultRetryConfig()
	if schema.MaxAttempts != nil {
		cfg.MaxAttempts = *schema.MaxAttempts
	}
	if schema.InitialDelay != nil {
		d, err := time.ParseDuration(*schema.InitialDelay)
		if err != nil {
			return entity.RetryConfig{}, fmt.Errorf("parsing initial_delay: %w", err)
		}
		cfg.InitialDelay = d
	}
	if schema.MaxDelay != nil {
		d, err := time.ParseDuration(*schema.MaxDelay)
		if err != nil {
			return entity.RetryConfig{}, fmt.Errorf("parsing max_delay: %w", err)
		}
		cfg.MaxDelay = d
	}
	if schema.BackoffFactor != nil {
		cfg.BackoffFactor = *schema.BackoffFactor
	}
	if schema.JitterType != nil {
		jt, err := entity.ParseJitterType(*schema.JitterType)
		if err != nil {
			return entity.RetryConfig{}, err
		}
		cfg.JitterType = jt
	}
	if schema.CircuitBreakerThreshold != nil {
		cfg.CircuitBreakerThreshold = *schema.CircuitBreakerThreshold
	}
	if schema.CircuitBreakerResetTimeout != nil {
		d, err := time.ParseDuration(*schema.CircuitBreakerResetTimeout)
		if err != nil {
			return entity.RetryConfig{}, fmt.Errorf("parsing circuit_breaker_reset_timeout: %w", err)
		}
		cfg.CircuitBreakerResetTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return entity.RetryConfig{}, err
	}
	return cfg, nil
}

// RetryWatcher reloads the retry policy file when it changes on disk.
// An invalid file keeps the previously committed configuration.
type RetryWatcher struct {
	path   string
	apply  func(entity.RetryConfig) error
	logger *zap.Logger
}

// NewRetryWatcher creates a watcher that calls apply with each valid
// config loaded from path.
func NewRetryWatcher(path string, apply func(entity.RetryConfig) error, logger *zap.Logger) *RetryWatcher {
	return &RetryWatcher{
		path:   path,
		apply:  apply,
		logger: logger.Named("retry-config-watcher"),
	}
}

// Watch blocks until the context is cancelled, reloading the file on
// write events. Editors often replace files instead of writing in place,
// so the parent directory is watched and events are filtered by name.
func (w *RetryWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("watching retry config", zap.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *RetryWatcher) reload() {
	cfg, err := LoadRetryConfig(w.path)
	if err != nil {
		w.logger.Error("retry config reload rejected, keeping previous",
			zap.Error(err),
		)
		return
	}
	if err := w.apply(cfg); err != nil {
		w.logger.Error("retry config apply failed", zap.Error(err))
		return
	}
	w.logger.Info("retry config reloaded")
}
