package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	db := NewTestDB(t)

	_, err := NewSnapshotRepository(db).Load(context.Background(), "owner1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSnapshotRepository_SaveLoadRoundTrip(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSnapshotRepository(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	sess := draft.NewSession(now)
	require.NoError(t, sess.Set(draft.HeadInfo{Title: "Loft", Category: "apartment", Description: "Bright"}, now))
	sess.HeadInfo.MarkSynced(now)
	sess.Anchor = draft.AnchoredTo("remote-1")

	snap := &registry.Snapshot{
		OngoingCreate:  sess,
		ActiveRentalID: "remote-1",
		RentalSessions: map[string]*draft.Session{sess.ID: sess.Clone()},
		SavedAt:        now,
	}
	require.NoError(t, repo.Save(ctx, "owner1", snap))

	loaded, err := repo.Load(ctx, "owner1")
	require.NoError(t, err)
	require.Equal(t, "remote-1", loaded.ActiveRentalID)
	require.Equal(t, sess.ID, loaded.OngoingCreate.ID)
	require.Len(t, loaded.RentalSessions, 1)

	remoteID, ok := loaded.OngoingCreate.Anchor.RemoteID()
	require.True(t, ok)
	require.Equal(t, "remote-1", remoteID)

	head, ok := loaded.OngoingCreate.HeadInfo.Data.(draft.HeadInfo)
	require.True(t, ok)
	require.Equal(t, "Loft", head.Title)
	require.True(t, loaded.OngoingCreate.HeadInfo.Synced())
}

func TestSnapshotRepository_SaveOverwrites(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSnapshotRepository(db)
	now := time.Now()

	first := draft.NewSession(now)
	second := draft.NewSession(now)
	require.NoError(t, repo.Save(ctx, "owner1", &registry.Snapshot{OngoingCreate: first}))
	require.NoError(t, repo.Save(ctx, "owner1", &registry.Snapshot{OngoingCreate: second}))

	loaded, err := repo.Load(ctx, "owner1")
	require.NoError(t, err)
	require.Equal(t, second.ID, loaded.OngoingCreate.ID)

	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM registry_snapshots").Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestSnapshotRepository_SaveRejectsEmpty(t *testing.T) {
	db := NewTestDB(t)

	err := NewSnapshotRepository(db).Save(context.Background(), "owner1", &registry.Snapshot{})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
