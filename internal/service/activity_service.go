package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/repository"
)

// Karma awarded per ledger entry type. Vote entries carry the vote delta instead.
const (
	PointsPostCreated     = 2
	PointsCommentCreated  = 1
	PointsCommunityJoined = 1
	PointsVoteCast        = 0
)

// ActivityEntry captures the details required to append a ledger entry.
type ActivityEntry struct {
	UserID      uint
	Type        string
	Description string
	Points      int
	EntityType  string
	EntityID    *uint
	Metadata    map[string]interface{}
}

// ActivityRecorder appends karma ledger entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
	RecordOnce(ctx context.Context, entry ActivityEntry) error
}

// ActivityService exposes the karma ledger.
type ActivityService interface {
	ActivityRecorder
	Karma(ctx context.Context, userID uint) (int64, error)
	List(ctx context.Context, userID uint, query dto.ActivityListQuery) (dto.ActivityFeedResponse, error)
}

type activityService struct {
	repo      repository.ActivityRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity ledger service.
func NewActivityService(repo repository.ActivityRepository, validator *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	if entry.UserID == 0 || strings.TrimSpace(entry.Type) == "" {
		return validationError("activity requires a user and a type")
	}

	model := newActivityModel(entry)
	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("user_id", entry.UserID).Str("activity_type", entry.Type).Msg("failed to persist activity")
		return internal("record activity", err)
	}
	return nil
}

// RecordOnce skips the entry when the user already has one of the same type for the entity.
func (s *activityService) RecordOnce(ctx context.Context, entry ActivityEntry) error {
	if entry.EntityID == nil {
		return s.Record(ctx, entry)
	}
	exists, err := s.repo.Exists(ctx, entry.UserID, entry.Type, *entry.EntityID)
	if err != nil {
		return internal("check activity", err)
	}
	if exists {
		return nil
	}
	return s.Record(ctx, entry)
}

func (s *activityService) Karma(ctx context.Context, userID uint) (int64, error) {
	karma, err := s.repo.SumPoints(ctx, userID)
	if err != nil {
		return 0, internal("compute karma", err)
	}
	return karma, nil
}

func (s *activityService) List(ctx context.Context, userID uint, query dto.ActivityListQuery) (dto.ActivityFeedResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ActivityFeedResponse{}, err
	}

	page := maxInt(query.Page, 1)
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := s.repo.List(ctx, repository.ActivityFilter{
		UserID:       userID,
		Page:         page,
		PageSize:     pageSize,
		ActivityType: query.Type,
	})
	if err != nil {
		return dto.ActivityFeedResponse{}, internal("list activity", err)
	}

	karma, err := s.Karma(ctx, userID)
	if err != nil {
		return dto.ActivityFeedResponse{}, err
	}

	return dto.ActivityFeedResponse{
		Karma:      karma,
		Items:      dto.NewActivityResponseSlice(entries),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func newActivityModel(entry ActivityEntry) models.UserActivity {
	model := models.UserActivity{
		UserID:       entry.UserID,
		ActivityType: strings.ToLower(strings.TrimSpace(entry.Type)),
		Description:  strings.TrimSpace(entry.Description),
		Points:       entry.Points,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
	}
	if len(entry.Metadata) > 0 {
		model.Metadata = datatypes.JSONMap(entry.Metadata)
	}
	return model
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func uintPtr(v uint) *uint {
	return &v
}
