package pushretry

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

// DIParams holds dependencies needed to create a PushRetry instance via DI.
type DIParams struct {
	dig.In

	Logger *zap.Logger
	Config *Config `optional:"true"`
}

// ProvidePushRetry creates a PushRetry instance for dependency injection.
// Use this when integrating into an app that uses uber-go/dig.
//
// Example:
//
//	container := dig.New()
//	container.Provide(pushretry.ProvidePushRetry)
//	container.Invoke(func(pr *pushretry.PushRetry) {
//	    pr.Start(ctx)
//	})
func ProvidePushRetry(params DIParams) (*PushRetry, error) {
	cfg := params.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Use the provided logger
	cfg.Logger = params.Logger

	return New(cfg)
}

// RegisterWithContainer registers PushRetry with a dig container.
// This is a convenience function that handles the registration for you.
//
// Example:
//
//	container := dig.New()
//	if err := pushretry.RegisterWithContainer(container); err != nil {
//	    log.Fatal(err)
//	}
func RegisterWithContainer(container *dig.Container) error {
	return container.Provide(ProvidePushRetry)
}

// StartParams holds dependencies for starting PushRetry via DI.
type StartParams struct {
	dig.In

	PushRetry *PushRetry
	Context   context.Context `optional:"true"`
}

// StartPushRetry is a lifecycle hook that starts PushRetry when invoked via DI.
//
// Example:
//
//	container.Invoke(pushretry.StartPushRetry)
func StartPushRetry(params StartParams) error {
	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return params.PushRetry.Start(ctx)
}
