package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepositoryLookupsAreCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	byEmail, err := repo.GetByEmail(ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byEmail.ID)

	exists, err := repo.EmailExists(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.UsernameExists(ctx, "ALICE")
	require.NoError(t, err)
	require.True(t, exists)

	_, err = repo.GetByUsername(ctx, "nobody")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepositorySearchAndPresence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, "gopher_one")
	createUser(t, db, "gopher_two")
	createUser(t, db, "rustacean")

	found, err := repo.Search(ctx, "GOPHER", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = repo.Search(ctx, "gopher", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)

	seen := time.Now()
	require.NoError(t, repo.SetPresence(ctx, found[0].ID, true, seen))
	updated, err := repo.GetByID(ctx, found[0].ID)
	require.NoError(t, err)
	require.True(t, updated.IsOnline)
	require.NotNil(t, updated.LastSeenAt)

	err = repo.SetPresence(ctx, 9999, true, seen)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepositorySearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	gopher := createUser(t, db, "gopher_one")
	createUser(t, db, "rustacean")
	createUser(t, db, "zig")

	found, err := repo.Search(ctx, "_", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, gopher.ID, found[0].ID)

	found, err = repo.Search(ctx, "%", 0)
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = repo.Search(ctx, `\`, 0)
	require.NoError(t, err)
	require.Empty(t, found)

	found, err = repo.Search(ctx, "r_st", 0)
	require.NoError(t, err)
	require.Empty(t, found)
}
