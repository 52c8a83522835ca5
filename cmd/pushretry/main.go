package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pushretry/internal/adapter/primary/worker"
	"pushretry/internal/config"
	"pushretry/internal/domain/service"
	"pushretry/internal/port/secondary"
)

const appName = "pushretry"

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancellation for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the dependency injection container.
	c, err := buildContainer(ctx)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}

	// Invoke the application, resolving all dependencies and starting services.
	return c.Invoke(func(
		router http.Handler,
		w *worker.Worker,
		svc *service.RetryService,
		cfg *config.Config,
		logger *zap.Logger,
		redisClient *goredis.Client,
		deadLetter secondary.DeadLetterSink,
	) error {
		defer func() {
			// Clean up resources on shutdown.
			if err := redisClient.Close(); err != nil {
				logger.Error("error closing redis", zap.Error(err))
			}
			if err := deadLetter.Close(); err != nil {
				logger.Error("error closing dead-letter producer", zap.Error(err))
			}
			_ = logger.Sync()
		}()

		logger.Info("starting application",
			zap.String("app", appName),
			zap.String("version", version),
			zap.String("environment", cfg.Environment),
			zap.String("http_addr", cfg.HTTPAddr),
		)

		// Restore the retry queue from the last persisted snapshot.
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		defer initCancel()
		if err := svc.Init(initCtx); err != nil {
			return fmt.Errorf("restoring queue snapshot: %w", err)
		}

		// Start the background worker.
		workerCtx, workerCancel := context.WithCancel(ctx)
		defer workerCancel()

		errCh := make(chan error, 3)
		go func() {
			errCh <- w.Run(workerCtx)
		}()

		// Watch the retry policy file for hot reloads.
		if cfg.RetryConfigFile != "" {
			watcher := config.NewRetryWatcher(cfg.RetryConfigFile, svc.ReplaceConfig, logger)
			go func() {
				if watchErr := watcher.Watch(workerCtx); watchErr != nil && !errors.Is(watchErr, context.Canceled) {
					errCh <- fmt.Errorf("retry config watcher: %w", watchErr)
				}
			}()
		}

		// Start the HTTP server.
		server := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			if srvErr := server.ListenAndServe(); srvErr != nil && srvErr != http.ErrServerClosed {
				errCh <- fmt.Errorf("http server: %w", srvErr)
			}
		}()

		// Wait for shutdown signal.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		case srvErr := <-errCh:
			if srvErr != nil && !errors.Is(srvErr, context.Canceled) {
				logger.Error("service error", zap.Error(srvErr))
			}
		}

		// Graceful shutdown with timeout.
		logger.Info("shutting down gracefully")
		cancel()
		workerCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}

		// Persist the queue so pending retries survive the restart.
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Error("error persisting queue snapshot", zap.Error(err))
		}

		logger.Info("shutdown complete")
		return nil
	})
}
