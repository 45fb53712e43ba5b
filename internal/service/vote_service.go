package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/observability"
	"github.com/noah-isme/forumly-api/internal/repository"
)

// VoteService casts and removes votes on posts.
type VoteService interface {
	Cast(ctx context.Context, actorID, postID uint, payload dto.VoteRequest) (dto.PostResponse, error)
	Remove(ctx context.Context, actorID, postID uint) (dto.PostResponse, error)
}

type voteService struct {
	votes     repository.VoteRepository
	posts     repository.PostRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewVoteService constructs the vote service.
func NewVoteService(votes repository.VoteRepository, posts repository.PostRepository, validate *validator.Validate, logger zerolog.Logger) VoteService {
	return &voteService{
		votes:     votes,
		posts:     posts,
		validator: validate,
		logger:    logger.With().Str("component", "vote_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/forumly-api/internal/service/vote"),
	}
}

func (s *voteService) Cast(ctx context.Context, actorID, postID uint, payload dto.VoteRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	voteType, err := resolveVoteType(payload)
	if err != nil {
		return dto.PostResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "vote.cast", trace.WithAttributes(
		attribute.Int("vote.post_id", int(postID)),
		attribute.Int("vote.user_id", int(actorID)),
		attribute.Int("vote.type", voteType),
	))
	defer span.End()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		span.SetStatus(codes.Error, "post lookup failed")
		return dto.PostResponse{}, notFoundOr("post", err)
	}

	previous, err := s.votes.Cast(ctx, actorID, postID, voteType, voteLedger(actorID, post, voteType))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vote upsert failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, notFound("post")
		}
		return dto.PostResponse{}, internal("cast vote", err)
	}

	switch {
	case previous == 0:
		observability.VotesCast().WithLabelValues("created").Inc()
	case previous == voteType:
		observability.VotesCast().WithLabelValues("unchanged").Inc()
	default:
		observability.VotesCast().WithLabelValues("changed").Inc()
	}

	return s.tally(ctx, actorID, postID)
}

func (s *voteService) Remove(ctx context.Context, actorID, postID uint) (dto.PostResponse, error) {
	ctx, span := s.tracer.Start(ctx, "vote.remove", trace.WithAttributes(
		attribute.Int("vote.post_id", int(postID)),
		attribute.Int("vote.user_id", int(actorID)),
	))
	defer span.End()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		span.SetStatus(codes.Error, "post lookup failed")
		return dto.PostResponse{}, notFoundOr("post", err)
	}

	previous, err := s.votes.Remove(ctx, actorID, postID, voteLedger(actorID, post, 0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vote removal failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostResponse{}, notFound("post")
		}
		return dto.PostResponse{}, internal("remove vote", err)
	}
	if previous != 0 {
		observability.VotesCast().WithLabelValues("removed").Inc()
	}

	return s.tally(ctx, actorID, postID)
}

// tally re-reads the post so the score always reflects stored vote rows.
func (s *voteService) tally(ctx context.Context, actorID, postID uint) (dto.PostResponse, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, notFoundOr("post", err)
	}
	return dto.NewPostResponse(post, actorID), nil
}

func resolveVoteType(payload dto.VoteRequest) (int, error) {
	switch payload.Direction {
	case "up":
		return models.VoteUp, nil
	case "down":
		return models.VoteDown, nil
	}
	if models.ValidVoteType(payload.Type) {
		return payload.Type, nil
	}
	return 0, validationError("vote direction must be up or down")
}

// voteLedger builds the karma entries for moving the voter's vote on post to next
// (0 meaning removed). The author receives the delta; self-votes earn nothing.
func voteLedger(voterID uint, post models.Post, next int) repository.LedgerFunc {
	return func(previous int) []models.UserActivity {
		if previous == next {
			return nil
		}

		postID := post.ID
		var entries []models.UserActivity
		if next != 0 {
			entries = append(entries, models.UserActivity{
				UserID:       voterID,
				ActivityType: models.ActivityVoteCast,
				Description:  fmt.Sprintf("Voted on post #%d", post.ID),
				Points:       PointsVoteCast,
				EntityType:   "post",
				EntityID:     &postID,
				Metadata:     datatypes.JSONMap{"type": next},
			})
		}
		if post.AuthorID != voterID {
			entries = append(entries, models.UserActivity{
				UserID:       post.AuthorID,
				ActivityType: models.ActivityVoteReceived,
				Description:  fmt.Sprintf("Vote change on post #%d", post.ID),
				Points:       next - previous,
				EntityType:   "post",
				EntityID:     &postID,
				Metadata:     datatypes.JSONMap{"voter_id": voterID, "previous": previous, "current": next},
			})
		}
		return entries
	}
}
