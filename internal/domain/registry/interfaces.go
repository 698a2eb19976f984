package registry

import (
	"context"

	"github.com/rpggio/listingdraft/internal/domain/activity"
)

// SnapshotStore persists one owner's registry as a whole. Save is a full
// overwrite; the last writer wins.
type SnapshotStore interface {
	Load(ctx context.Context, ownerID string) (*Snapshot, error)
	Save(ctx context.Context, ownerID string, snap *Snapshot) error
}

// ActivityRecorder logs draft events without failing the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, ownerID string, entry *activity.ActivityEntry)
}
