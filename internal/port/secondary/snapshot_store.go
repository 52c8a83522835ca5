package secondary

import (
	"context"

	"pushretry/internal/domain/entity"
)

// SnapshotStore defines the secondary port for persisting the retry queue
// across restarts. The queue itself lives in memory; the store is only
// consulted at startup and shutdown.
type SnapshotStore interface {
	// Save replaces the persisted snapshot with the given records.
	Save(ctx context.Context, records []entity.RetryRecord) error

	// Load returns the persisted records, or an empty slice if none.
	Load(ctx context.Context) ([]entity.RetryRecord, error)
}
