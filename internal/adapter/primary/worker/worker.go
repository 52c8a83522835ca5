package worker

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/port/primary"
)

// Worker triggers a queue-processing cycle at regular intervals. It
// respects context cancellation for graceful shutdown.
type Worker struct {
	service      primary.RetryService
	pollInterval time.Duration
	clock        quartz.Clock
	logger       *zap.Logger
}

// NewWorker creates a Worker that drains the retry queue at the given
// interval.
func NewWorker(
	service primary.RetryService,
	pollInterval time.Duration,
	clock quartz.Clock,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		service:      service,
		pollInterval: pollInterval,
		clock:        clock,
		logger:       logger.Named("worker"),
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		zap.Duration("poll_interval", w.pollInterval),
	)

	ticker := w.clock.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			res, err := w.service.ProcessQueue(ctx)
			if err != nil {
				// An administrative trigger may hold the cycle; that is
				// not an error worth more than a debug line.
				if errors.Is(err, domain.ErrCycleInProgress) {
					w.logger.Debug("cycle already running, skipping tick")
					continue
				}
				// Log but do not return -- the worker should keep running.
				w.logger.Error("error processing retry queue", zap.Error(err))
				continue
			}
			if res.Processed > 0 {
				w.logger.Info("cycle complete",
					zap.Int("processed", res.Processed),
					zap.Int("successful", res.Successful),
					zap.Int("failed", res.Failed),
					zap.Int("skipped", res.Skipped),
				)
			}
		}
	}
}
