package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/repository"
)

// SnapshotStore implements registry.SnapshotStore on Redis string keys.
// A zero ttl keeps snapshots forever.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a SnapshotStore.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// Load returns the owner's snapshot or repository.ErrNotFound.
func (s *SnapshotStore) Load(ctx context.Context, ownerID string) (*registry.Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(ownerID)).Result()
	if err == redis.Nil {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot([]byte(data))
}

// Save overwrites the owner's snapshot.
func (s *SnapshotStore) Save(ctx context.Context, ownerID string, snap *registry.Snapshot) error {
	if ownerID == "" || snap == nil || snap.OngoingCreate == nil {
		return repository.ErrInvalidInput
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(ownerID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*registry.Snapshot, error) {
	var snap registry.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
