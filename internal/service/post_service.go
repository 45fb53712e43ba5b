package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/repository"
)

// PostService exposes post use-cases.
type PostService interface {
	Create(ctx context.Context, actorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error)
	List(ctx context.Context, viewerID uint, query dto.PostListQuery) ([]dto.PostResponse, dto.PaginationMeta, error)
	ListByUser(ctx context.Context, viewerID uint, username string, page, pageSize int) ([]dto.PostResponse, dto.PaginationMeta, error)
	Get(ctx context.Context, viewerID, postID uint) (dto.PostResponse, error)
	Update(ctx context.Context, actorID, postID uint, payload dto.PostUpdateRequest) (dto.PostResponse, error)
	Delete(ctx context.Context, actorID, postID uint) error
}

type postService struct {
	posts         repository.PostRepository
	communities   repository.CommunityRepository
	users         repository.UserRepository
	activities    ActivityRecorder
	validator     *validator.Validate
	titlePolicy   *bluemonday.Policy
	contentPolicy *bluemonday.Policy
	logger        zerolog.Logger
}

// NewPostService constructs the post service.
func NewPostService(posts repository.PostRepository, communities repository.CommunityRepository, users repository.UserRepository, activities ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) PostService {
	content := bluemonday.UGCPolicy()
	content.AllowElements("br")

	return &postService{
		posts:         posts,
		communities:   communities,
		users:         users,
		activities:    activities,
		validator:     validate,
		titlePolicy:   bluemonday.StrictPolicy(),
		contentPolicy: content,
		logger:        logger.With().Str("component", "post_service").Logger(),
	}
}

func (s *postService) Create(ctx context.Context, actorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	title := strings.TrimSpace(s.titlePolicy.Sanitize(payload.Title))
	if title == "" {
		return dto.PostResponse{}, validationError("title is required")
	}

	community, err := s.communities.GetByName(ctx, strings.TrimSpace(payload.CommunityName))
	if err != nil {
		return dto.PostResponse{}, notFoundOr("community", err)
	}

	post := models.Post{
		Title:         title,
		Content:       strings.TrimSpace(s.contentPolicy.Sanitize(payload.Content)),
		CommunityName: community.Name,
		ImageURL:      strings.TrimSpace(payload.ImageURL),
		LinkURL:       strings.TrimSpace(payload.LinkURL),
		Tags:          payload.Tags,
		AuthorID:      actorID,
	}
	if err := s.posts.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, internal("create post", err)
	}

	if s.activities != nil {
		if err := s.activities.Record(ctx, ActivityEntry{
			UserID:      actorID,
			Type:        models.ActivityPostCreated,
			Description: fmt.Sprintf("Posted %q in c/%s", post.Title, post.CommunityName),
			Points:      PointsPostCreated,
			EntityType:  "post",
			EntityID:    uintPtr(post.ID),
		}); err != nil {
			s.logger.Warn().Err(err).Uint("post_id", post.ID).Msg("failed to record post activity")
		}
	}

	return s.Get(ctx, actorID, post.ID)
}

func (s *postService) List(ctx context.Context, viewerID uint, query dto.PostListQuery) ([]dto.PostResponse, dto.PaginationMeta, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	filter := repository.PostFilter{
		Page:          maxInt(query.Page, 1),
		PageSize:      normalisePageSize(query.PageSize),
		CommunityName: strings.TrimSpace(query.Community),
		Sort:          query.Sort,
	}

	if author := strings.TrimSpace(query.Author); author != "" {
		user, err := s.users.GetByUsername(ctx, author)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []dto.PostResponse{}, dto.NewPaginationMeta(filter.Page, filter.PageSize, 0), nil
		}
		if err != nil {
			return nil, dto.PaginationMeta{}, internal("load author", err)
		}
		filter.AuthorID = &user.ID
	}

	return s.list(ctx, viewerID, filter)
}

func (s *postService) ListByUser(ctx context.Context, viewerID uint, username string, page, pageSize int) ([]dto.PostResponse, dto.PaginationMeta, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, dto.PaginationMeta{}, notFoundOr("user", err)
	}

	return s.list(ctx, viewerID, repository.PostFilter{
		Page:     maxInt(page, 1),
		PageSize: normalisePageSize(pageSize),
		AuthorID: &user.ID,
	})
}

func (s *postService) list(ctx context.Context, viewerID uint, filter repository.PostFilter) ([]dto.PostResponse, dto.PaginationMeta, error) {
	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, dto.PaginationMeta{}, internal("list posts", err)
	}
	return dto.NewPostResponseSlice(posts, viewerID), dto.NewPaginationMeta(filter.Page, filter.PageSize, total), nil
}

func (s *postService) Get(ctx context.Context, viewerID, postID uint) (dto.PostResponse, error) {
	post, err := s.posts.GetWithDetails(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, notFoundOr("post", err)
	}
	return dto.NewPostResponse(post, viewerID), nil
}

func (s *postService) Update(ctx context.Context, actorID, postID uint, payload dto.PostUpdateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, notFoundOr("post", err)
	}
	if post.AuthorID != actorID {
		return dto.PostResponse{}, ErrNotOwner
	}

	if payload.Title != nil {
		title := strings.TrimSpace(s.titlePolicy.Sanitize(*payload.Title))
		if title == "" {
			return dto.PostResponse{}, validationError("title is required")
		}
		post.Title = title
	}
	if payload.Content != nil {
		post.Content = strings.TrimSpace(s.contentPolicy.Sanitize(*payload.Content))
	}
	if payload.ImageURL != nil {
		post.ImageURL = strings.TrimSpace(*payload.ImageURL)
	}
	if payload.LinkURL != nil {
		post.LinkURL = strings.TrimSpace(*payload.LinkURL)
	}
	if payload.Tags != nil {
		post.Tags = *payload.Tags
	}

	if err := s.posts.Update(ctx, &post); err != nil {
		return dto.PostResponse{}, internal("update post", err)
	}

	return s.Get(ctx, actorID, post.ID)
}

func (s *postService) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return notFoundOr("post", err)
	}
	if post.AuthorID != actorID {
		return ErrNotOwner
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return notFoundOr("post", err)
	}

	s.logger.Info().Uint("post_id", postID).Uint("user_id", actorID).Msg("post deleted")
	return nil
}

func normalisePageSize(pageSize int) int {
	if pageSize <= 0 || pageSize > 100 {
		return 20
	}
	return pageSize
}
