package secondary

import (
	"context"

	"pushretry/internal/domain/entity"
)

// Deliverer defines the secondary port for delivering a notification to
// the push gateway. The retry subsystem treats it as an opaque,
// possibly-slow, possibly-failing dependency.
type Deliverer interface {
	// Deliver attempts one delivery. Transport errors and gateway
	// rejections are both reported through the result, never panics.
	Deliver(ctx context.Context, n *entity.Notification) entity.DeliveryResult
}
