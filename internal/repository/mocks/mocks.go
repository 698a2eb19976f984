package mocks

import (
	"context"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/stretchr/testify/mock"
)

// SnapshotStore is a mock for registry.SnapshotStore.
type SnapshotStore struct {
	mock.Mock
}

func (m *SnapshotStore) Load(ctx context.Context, ownerID string) (*registry.Snapshot, error) {
	args := m.Called(ctx, ownerID)
	if snap, ok := args.Get(0).(*registry.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotStore) Save(ctx context.Context, ownerID string, snap *registry.Snapshot) error {
	args := m.Called(ctx, ownerID, snap)
	return args.Error(0)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, ownerID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, ownerID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, ownerID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, ownerID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListingAPI is a mock for upload.ListingAPI.
type ListingAPI struct {
	mock.Mock
}

func (m *ListingAPI) CreateRental(ctx context.Context, sessionID string, info draft.Payload) (*listingapi.Envelope, error) {
	args := m.Called(ctx, sessionID, info)
	if env, ok := args.Get(0).(*listingapi.Envelope); ok {
		return env, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ListingAPI) SubmitSection(ctx context.Context, kind draft.Kind, targetID string, data draft.Payload) (*listingapi.Envelope, error) {
	args := m.Called(ctx, kind, targetID, data)
	if env, ok := args.Get(0).(*listingapi.Envelope); ok {
		return env, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ListingAPI) UploadFiles(ctx context.Context, targetID string, files []draft.FileHandle) (*listingapi.Envelope, error) {
	args := m.Called(ctx, targetID, files)
	if env, ok := args.Get(0).(*listingapi.Envelope); ok {
		return env, args.Error(1)
	}
	return nil, args.Error(1)
}

// TokenRenewer is a mock for lifecycle.TokenRenewer.
type TokenRenewer struct {
	mock.Mock
}

func (m *TokenRenewer) RenewToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}
