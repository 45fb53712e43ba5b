package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/models"
)

func TestPostRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	older := createPost(t, db, alice, "older")
	newer := createPost(t, db, bob, "newer")
	other := models.Post{Title: "elsewhere", CommunityName: "rust", AuthorID: alice.ID}
	require.NoError(t, repo.Create(ctx, &other))

	_, err := votes.Cast(ctx, bob.ID, older.ID, models.VoteUp, nil)
	require.NoError(t, err)
	_, err = votes.Cast(ctx, alice.ID, older.ID, models.VoteUp, nil)
	require.NoError(t, err)

	posts, total, err := repo.List(ctx, PostFilter{CommunityName: "golang"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, newer.ID, posts[0].ID)

	top, _, err := repo.List(ctx, PostFilter{CommunityName: "golang", Sort: PostSortTop})
	require.NoError(t, err)
	require.Equal(t, older.ID, top[0].ID)
	require.Equal(t, 2, top[0].Score())
	require.Equal(t, "alice", top[0].Author.Username)

	mine, total, err := repo.List(ctx, PostFilter{AuthorID: &alice.ID, PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, mine, 1)
}

func TestPostRepositoryDeleteRemovesVotesAndComments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice, "doomed")

	_, err := NewVoteRepository(db).Cast(ctx, alice.ID, post.ID, models.VoteUp, nil)
	require.NoError(t, err)
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "bye"}))

	require.NoError(t, repo.Delete(ctx, post.ID))

	var count int64
	require.NoError(t, db.Model(&models.Vote{}).Where("post_id = ?", post.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count).Error)
	require.Zero(t, count)

	err = repo.Delete(ctx, post.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPostRepositorySearchMatchesCaseInsensitively(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	tagged := models.Post{Title: "Concurrency Patterns", CommunityName: "golang", AuthorID: alice.ID, Tags: []string{"Channels"}}
	require.NoError(t, repo.Create(ctx, &tagged))
	createPost(t, db, alice, "unrelated")

	results, err := repo.Search(ctx, "CONCURRENCY", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, tagged.ID, results[0].ID)
	require.Equal(t, []string{"channels"}, results[0].Tags)

	results, err = repo.Search(ctx, "channels", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestPostRepositorySearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	full := createPost(t, db, alice, "100% coverage")
	createPost(t, db, alice, "partial coverage")

	results, err := repo.Search(ctx, "%", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, full.ID, results[0].ID)

	results, err = repo.Search(ctx, "_", 20)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestPostRepositoryGetWithDetailsOrdersComments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	post := createPost(t, db, alice, "threaded")

	first := models.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "first"}
	require.NoError(t, comments.Create(ctx, &first))
	reply := models.Comment{PostID: post.ID, AuthorID: alice.ID, Content: "reply", ParentID: &first.ID}
	require.NoError(t, comments.Create(ctx, &reply))

	loaded, err := repo.GetWithDetails(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Comments, 2)
	require.Equal(t, "first", loaded.Comments[0].Content)
	require.Equal(t, first.ID, *loaded.Comments[1].ParentID)
	require.Equal(t, "alice", loaded.Comments[1].Author.Username)

	count, err := comments.CountByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
