package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/handler"
	"github.com/noah-isme/forumly-api/internal/service"
)

type postServiceStub struct {
	lastViewer uint
	lastQuery  dto.PostListQuery
	deleteErr  error
}

func (s *postServiceStub) Create(ctx context.Context, actorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	return dto.PostResponse{ID: 1, Title: payload.Title, Author: dto.UserSummary{ID: actorID}}, nil
}

func (s *postServiceStub) List(ctx context.Context, viewerID uint, query dto.PostListQuery) ([]dto.PostResponse, dto.PaginationMeta, error) {
	s.lastViewer = viewerID
	s.lastQuery = query
	return []dto.PostResponse{{ID: 1, Title: "hello", UserVote: 1}}, dto.NewPaginationMeta(1, 20, 1), nil
}

func (s *postServiceStub) ListByUser(ctx context.Context, viewerID uint, username string, page, pageSize int) ([]dto.PostResponse, dto.PaginationMeta, error) {
	return []dto.PostResponse{}, dto.NewPaginationMeta(1, 20, 0), nil
}

func (s *postServiceStub) Get(ctx context.Context, viewerID, postID uint) (dto.PostResponse, error) {
	s.lastViewer = viewerID
	if postID == 404 {
		return dto.PostResponse{}, &service.Error{Kind: service.KindNotFound, Message: "post not found"}
	}
	return dto.PostResponse{ID: postID}, nil
}

func (s *postServiceStub) Update(ctx context.Context, actorID, postID uint, payload dto.PostUpdateRequest) (dto.PostResponse, error) {
	return dto.PostResponse{}, service.ErrNotOwner
}

func (s *postServiceStub) Delete(ctx context.Context, actorID, postID uint) error {
	return s.deleteErr
}

type voteServiceStub struct {
	actor   uint
	post    uint
	payload dto.VoteRequest
	removed bool
}

func (s *voteServiceStub) Cast(ctx context.Context, actorID, postID uint, payload dto.VoteRequest) (dto.PostResponse, error) {
	s.actor, s.post, s.payload = actorID, postID, payload
	return dto.PostResponse{ID: postID, Score: 1, Upvotes: 1, UserVote: 1}, nil
}

func (s *voteServiceStub) Remove(ctx context.Context, actorID, postID uint) (dto.PostResponse, error) {
	s.actor, s.post, s.removed = actorID, postID, true
	return dto.PostResponse{ID: postID}, nil
}

func newPostTestApp(posts service.PostService, votes service.VoteService) *fiber.App {
	app := fiber.New()
	handler.NewPostHandler(posts, votes, testLogger()).Register(app.Group("/api/posts"), testGuards())
	return app
}

func TestPostListPassesViewerAndFilters(t *testing.T) {
	posts := &postServiceStub{}
	app := newPostTestApp(posts, &voteServiceStub{})

	resp := doJSON(t, app, http.MethodGet, "/api/posts?community=golang&sort=top&page=2&limit=5", 0, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Zero(t, posts.lastViewer)
	require.Equal(t, dto.PostListQuery{Page: 2, PageSize: 5, Community: "golang", Sort: "top"}, posts.lastQuery)

	payload := decodeEnvelope(t, resp)
	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(payload.Meta, &meta))
	require.EqualValues(t, 1, meta.TotalItems)

	resp = doJSON(t, app, http.MethodGet, "/api/posts", 42, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(42), posts.lastViewer)
}

func TestPostVoteUsesCallerIdentity(t *testing.T) {
	votes := &voteServiceStub{}
	app := newPostTestApp(&postServiceStub{}, votes)

	resp := doJSON(t, app, http.MethodPost, "/api/posts/9/vote", 0, map[string]interface{}{"direction": "up"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// a user_id in the body is ignored; the caller is the voter
	resp = doJSON(t, app, http.MethodPost, "/api/posts/9/vote", 3, map[string]interface{}{"direction": "up", "user_id": 77})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(3), votes.actor)
	require.Equal(t, uint(9), votes.post)
	require.Equal(t, "up", votes.payload.Direction)

	var post dto.PostResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &post))
	require.Equal(t, 1, post.Score)
	require.Equal(t, 1, post.UserVote)

	resp = doJSON(t, app, http.MethodDelete, "/api/posts/9/vote", 3, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, votes.removed)
}

func TestPostErrorStatuses(t *testing.T) {
	posts := &postServiceStub{deleteErr: service.ErrNotOwner}
	app := newPostTestApp(posts, &voteServiceStub{})

	resp := doJSON(t, app, http.MethodGet, "/api/posts/abc", 0, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid id", decodeEnvelope(t, resp).Error)

	resp = doJSON(t, app, http.MethodGet, "/api/posts/404", 0, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	title := "mine now"
	resp = doJSON(t, app, http.MethodPut, "/api/posts/1", 2, dto.PostUpdateRequest{Title: &title})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/posts/1", 2, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "you can only modify your own content", decodeEnvelope(t, resp).Error)
}
