package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/repository"
)

// CommentService exposes comment use-cases.
type CommentService interface {
	Create(ctx context.Context, actorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListByPost(ctx context.Context, postID uint) ([]dto.CommentResponse, error)
	Delete(ctx context.Context, actorID, commentID uint) error
}

type commentService struct {
	comments   repository.CommentRepository
	posts      repository.PostRepository
	activities ActivityRecorder
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewCommentService constructs the comment service.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, activities ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) CommentService {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")

	return &commentService{
		comments:   comments,
		posts:      posts,
		activities: activities,
		validator:  validate,
		sanitizer:  policy,
		logger:     logger.With().Str("component", "comment_service").Logger(),
	}
}

func (s *commentService) Create(ctx context.Context, actorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, validationError("comment content is required")
	}

	exists, err := s.posts.Exists(ctx, payload.PostID)
	if err != nil {
		return dto.CommentResponse{}, internal("check post", err)
	}
	if !exists {
		return dto.CommentResponse{}, notFound("post")
	}

	if payload.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *payload.ParentID)
		if err != nil {
			return dto.CommentResponse{}, notFoundOr("parent comment", err)
		}
		if parent.PostID != payload.PostID {
			return dto.CommentResponse{}, validationError("parent comment belongs to another post")
		}
	}

	comment := models.Comment{
		Content:  content,
		PostID:   payload.PostID,
		AuthorID: actorID,
		ParentID: payload.ParentID,
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, internal("create comment", err)
	}

	if s.activities != nil {
		if err := s.activities.Record(ctx, ActivityEntry{
			UserID:      actorID,
			Type:        models.ActivityCommentCreated,
			Description: "Commented on a post",
			Points:      PointsCommentCreated,
			EntityType:  "comment",
			EntityID:    uintPtr(comment.ID),
			Metadata:    map[string]interface{}{"post_id": comment.PostID},
		}); err != nil {
			s.logger.Warn().Err(err).Uint("comment_id", comment.ID).Msg("failed to record comment activity")
		}
	}

	stored, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return dto.CommentResponse{}, notFoundOr("comment", err)
	}
	return dto.NewCommentResponse(stored), nil
}

func (s *commentService) ListByPost(ctx context.Context, postID uint) ([]dto.CommentResponse, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, internal("check post", err)
	}
	if !exists {
		return nil, notFound("post")
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, internal("list comments", err)
	}
	return dto.NewCommentResponseSlice(comments), nil
}

// Delete removes the caller's comment. Replies keep their parent_id and are
// rendered top-level by clients once the parent is gone.
func (s *commentService) Delete(ctx context.Context, actorID, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return notFoundOr("comment", err)
	}
	if comment.AuthorID != actorID {
		return ErrNotOwner
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundOr("comment", err)
	}
	return nil
}
