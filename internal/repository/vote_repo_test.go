package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/forumly-api/internal/models"
)

func newMockVoteRepository(t *testing.T) (VoteRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewVoteRepository(db), mock
}

func TestVoteRepositoryCastKeepsSingleRowPerUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	post := createPost(t, db, author, "first")

	var seen []int
	ledger := func(previous int) []models.UserActivity {
		seen = append(seen, previous)
		return nil
	}

	previous, err := repo.Cast(ctx, voter.ID, post.ID, models.VoteUp, ledger)
	require.NoError(t, err)
	require.Equal(t, 0, previous)

	previous, err = repo.Cast(ctx, voter.ID, post.ID, models.VoteDown, ledger)
	require.NoError(t, err)
	require.Equal(t, models.VoteUp, previous)
	require.Equal(t, []int{0, models.VoteUp}, seen)

	votes, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.Equal(t, models.VoteDown, votes[0].Type)
	require.Equal(t, voter.ID, votes[0].UserID)
}

func TestVoteRepositoryCastWritesLedgerInTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	post := createPost(t, db, author, "first")

	_, err := repo.Cast(ctx, voter.ID, post.ID, models.VoteUp, func(previous int) []models.UserActivity {
		return []models.UserActivity{{UserID: author.ID, ActivityType: models.ActivityVoteReceived, Points: models.VoteUp - previous}}
	})
	require.NoError(t, err)

	var entries []models.UserActivity
	require.NoError(t, db.Where("user_id = ?", author.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, 1, entries[0].Points)
}

func TestVoteRepositoryRemoveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	voter := createUser(t, db, "voter")
	post := createPost(t, db, author, "first")

	_, err := repo.Cast(ctx, voter.ID, post.ID, models.VoteUp, nil)
	require.NoError(t, err)

	calls := 0
	ledger := func(previous int) []models.UserActivity {
		calls++
		return nil
	}

	previous, err := repo.Remove(ctx, voter.ID, post.ID, ledger)
	require.NoError(t, err)
	require.Equal(t, models.VoteUp, previous)

	previous, err = repo.Remove(ctx, voter.ID, post.ID, ledger)
	require.NoError(t, err)
	require.Equal(t, 0, previous)
	require.Equal(t, 1, calls)

	votes, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Empty(t, votes)
}

func TestVoteRepositoryCastLocksPostBeforeReadingVote(t *testing.T) {
	repo, mock := newMockVoteRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "posts" WHERE "posts"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM "votes" WHERE user_id = \$1 AND post_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "user_id", "post_id"}))
	mock.ExpectQuery(`INSERT INTO "votes" .* ON CONFLICT \("user_id","post_id"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	previous, err := repo.Cast(context.Background(), 3, 7, models.VoteUp, nil)
	require.NoError(t, err)
	require.Equal(t, 0, previous)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepositoryRemoveLocksPostBeforeReadingVote(t *testing.T) {
	repo, mock := newMockVoteRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "posts" WHERE "posts"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM "votes" WHERE user_id = \$1 AND post_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "user_id", "post_id"}).AddRow(1, models.VoteDown, 3, 7))
	mock.ExpectExec(`DELETE FROM "votes" WHERE user_id = \$1 AND post_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	previous, err := repo.Remove(context.Background(), 3, 7, nil)
	require.NoError(t, err)
	require.Equal(t, models.VoteDown, previous)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepositoryCastOnMissingPost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	voter := createUser(t, db, "voter")

	_, err := repo.Cast(context.Background(), voter.ID, 9999, models.VoteUp, func(previous int) []models.UserActivity {
		t.Fatal("ledger must not be built for a missing post")
		return nil
	})
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	votes, err := repo.ListByPost(context.Background(), 9999)
	require.NoError(t, err)
	require.Empty(t, votes)
}
