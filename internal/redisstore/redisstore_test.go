package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/notify"
	"github.com/rpggio/listingdraft/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestSnapshotKey(t *testing.T) {
	require.Equal(t, "listingdraft:registry:owner1", snapshotKey("owner1"))
}

func TestChangeCodec(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b, err := encodeChange(notify.Change{OwnerID: "owner1", Origin: "a", At: at})
	require.NoError(t, err)

	change, err := decodeChange(b)
	require.NoError(t, err)
	require.Equal(t, "owner1", change.OwnerID)
	require.Equal(t, "a", change.Origin)
	require.True(t, at.Equal(change.At))

	_, err = decodeChange([]byte(`{"origin":"a"}`))
	require.Error(t, err)
	_, err = decodeChange([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeSnapshot(t *testing.T) {
	_, err := decodeSnapshot([]byte(`{`))
	require.Error(t, err)

	snap, err := decodeSnapshot([]byte(`{"ongoingCreate":null,"rentalSessions":{}}`))
	require.NoError(t, err)
	require.Nil(t, snap.OngoingCreate)
}

// The tests below need a live Redis and are skipped without one.
func testClient(t *testing.T) *SnapshotStore {
	t.Helper()
	addr := os.Getenv("LISTINGDRAFT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LISTINGDRAFT_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewSnapshotStore(client, time.Minute)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := testClient(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()

	_, err := store.Load(ctx, owner)
	require.ErrorIs(t, err, repository.ErrNotFound)

	sess := draft.NewSession(time.Now())
	require.NoError(t, store.Save(ctx, owner, &registry.Snapshot{
		OngoingCreate:  sess,
		RentalSessions: map[string]*draft.Session{sess.ID: sess.Clone()},
	}))
	t.Cleanup(func() { store.client.Del(context.Background(), snapshotKey(owner)) })

	loaded, err := store.Load(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.OngoingCreate.ID)
	require.Len(t, loaded.RentalSessions, 1)
}

func TestNotifier_RelaysPublishedChanges(t *testing.T) {
	store := testClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(store.client, nil)
	received := make(chan notify.Change, 1)
	n.Subscribe(func(c notify.Change) {
		select {
		case received <- c:
		default:
		}
	})

	go func() { _ = n.Run(ctx) }()

	owner := "test-" + uuid.NewString()
	require.Eventually(t, func() bool {
		_ = n.Publish(ctx, notify.Change{OwnerID: owner, Origin: "other"})
		select {
		case c := <-received:
			return c.OwnerID == owner
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)
}
