package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/repository"
)

// SnapshotRepository implements registry.SnapshotStore for SQLite. Each
// owner has exactly one row holding the whole registry as JSON.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Load returns the stored snapshot or repository.ErrNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, ownerID string) (*registry.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM registry_snapshots WHERE owner_id = ?`, ownerID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap registry.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save overwrites the owner's snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, ownerID string, snap *registry.Snapshot) error {
	if ownerID == "" || snap == nil || snap.OngoingCreate == nil {
		return repository.ErrInvalidInput
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var rentalID sql.NullString
	if snap.ActiveRentalID != "" {
		rentalID = sql.NullString{String: snap.ActiveRentalID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO registry_snapshots (
			owner_id, payload, active_session_id, active_rental_id, session_count, saved_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			payload = excluded.payload,
			active_session_id = excluded.active_session_id,
			active_rental_id = excluded.active_rental_id,
			session_count = excluded.session_count,
			saved_at = excluded.saved_at
	`,
		ownerID,
		string(payload),
		snap.OngoingCreate.ID,
		rentalID,
		len(snap.RentalSessions),
		snap.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
