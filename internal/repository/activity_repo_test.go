package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/forumly-api/internal/models"
)

func TestActivityRepositorySumListAndExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	user := createUser(t, db, "alice")
	communityID := uint(7)

	entries := []models.UserActivity{
		{UserID: user.ID, ActivityType: models.ActivityPostCreated, Points: 2},
		{UserID: user.ID, ActivityType: models.ActivityCommentCreated, Points: 1},
		{UserID: user.ID, ActivityType: models.ActivityVoteReceived, Points: -2, Metadata: datatypes.JSONMap{"post_id": 1}},
		{UserID: user.ID, ActivityType: models.ActivityCommunityJoined, Points: 1, EntityType: "community", EntityID: &communityID},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	karma, err := repo.SumPoints(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), karma)

	empty, err := repo.SumPoints(ctx, user.ID+100)
	require.NoError(t, err)
	require.Zero(t, empty)

	items, total, err := repo.List(ctx, ActivityFilter{UserID: user.ID, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Len(t, items, 2)
	require.Equal(t, models.ActivityCommunityJoined, items[0].ActivityType)

	filtered, total, err := repo.List(ctx, ActivityFilter{UserID: user.ID, ActivityType: models.ActivityVoteReceived})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.EqualValues(t, 1, filtered[0].Metadata["post_id"])

	exists, err := repo.Exists(ctx, user.ID, models.ActivityCommunityJoined, communityID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.Exists(ctx, user.ID, models.ActivityCommunityJoined, communityID+1)
	require.NoError(t, err)
	require.False(t, exists)
}
