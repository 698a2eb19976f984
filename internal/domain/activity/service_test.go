package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	ownerID := "owner1"

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		SessionID:    "sess1",
		ActivityType: activity.TypeSessionStarted,
		Summary:      "started",
	}

	repo.On("Log", ctx, ownerID, entry).Return(nil)
	repo.On("List", ctx, ownerID, activity.ListActivityOptions{SessionID: "sess1", Limit: 50}).
		Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, ownerID, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, ownerID, activity.ListActivityOptions{SessionID: "sess1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_LogRejectsMissingType(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	err := svc.LogActivity(context.Background(), "owner1", &activity.ActivityEntry{Summary: "x"})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestActivityService_RecordSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("Log", ctx, "owner1", mock.Anything).Return(errors.New("disk full"))

	svc := activity.NewService(repo, nil)
	svc.Record(ctx, "owner1", &activity.ActivityEntry{ActivityType: activity.TypeSectionSynced})
	repo.AssertExpectations(t)
}
