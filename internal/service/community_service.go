package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/repository"
)

var communityNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// CommunityService exposes community use-cases.
type CommunityService interface {
	Create(ctx context.Context, actorID uint, payload dto.CommunityCreateRequest) (dto.CommunityResponse, error)
	List(ctx context.Context, page, pageSize int) ([]dto.CommunityResponse, dto.PaginationMeta, error)
	Get(ctx context.Context, viewerID uint, name string) (dto.CommunityResponse, error)
	Join(ctx context.Context, actorID uint, name string) (dto.CommunityResponse, error)
	Leave(ctx context.Context, actorID uint, name string) (dto.CommunityResponse, error)
}

type communityService struct {
	repo       repository.CommunityRepository
	activities ActivityRecorder
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewCommunityService constructs the community service.
func NewCommunityService(repo repository.CommunityRepository, activities ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) CommunityService {
	return &communityService{
		repo:       repo,
		activities: activities,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "community_service").Logger(),
	}
}

func (s *communityService) Create(ctx context.Context, actorID uint, payload dto.CommunityCreateRequest) (dto.CommunityResponse, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommunityResponse{}, err
	}
	if !communityNamePattern.MatchString(payload.Name) {
		return dto.CommunityResponse{}, validationError("community name may only contain letters, digits and underscores")
	}

	if _, err := s.repo.GetByName(ctx, payload.Name); err == nil {
		return dto.CommunityResponse{}, conflict("community already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CommunityResponse{}, internal("check community", err)
	}

	community := models.Community{
		Name:        payload.Name,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		BannerImage: payload.BannerImage,
		Icon:        payload.Icon,
		CreatorID:   actorID,
	}
	if err := s.repo.Create(ctx, &community); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CommunityResponse{}, conflict("community already exists")
		}
		return dto.CommunityResponse{}, internal("create community", err)
	}

	s.recordJoin(ctx, actorID, community)

	response := dto.NewCommunityResponse(community)
	response.IsMember = true
	return response, nil
}

func (s *communityService) List(ctx context.Context, page, pageSize int) ([]dto.CommunityResponse, dto.PaginationMeta, error) {
	page = maxInt(page, 1)
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, dto.PaginationMeta{}, internal("list communities", err)
	}

	return dto.NewCommunityResponseSlice(items), dto.NewPaginationMeta(page, pageSize, total), nil
}

func (s *communityService) Get(ctx context.Context, viewerID uint, name string) (dto.CommunityResponse, error) {
	community, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return dto.CommunityResponse{}, notFoundOr("community", err)
	}

	response := dto.NewCommunityResponse(community)
	if viewerID != 0 {
		isMember, err := s.repo.IsMember(ctx, community.ID, viewerID)
		if err != nil {
			return dto.CommunityResponse{}, internal("check membership", err)
		}
		response.IsMember = isMember
	}
	return response, nil
}

func (s *communityService) Join(ctx context.Context, actorID uint, name string) (dto.CommunityResponse, error) {
	community, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return dto.CommunityResponse{}, notFoundOr("community", err)
	}

	joined, err := s.repo.Join(ctx, community.ID, actorID)
	if err != nil {
		return dto.CommunityResponse{}, internal("join community", err)
	}
	if joined {
		s.recordJoin(ctx, actorID, community)
	}

	return s.Get(ctx, actorID, community.Name)
}

func (s *communityService) Leave(ctx context.Context, actorID uint, name string) (dto.CommunityResponse, error) {
	community, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return dto.CommunityResponse{}, notFoundOr("community", err)
	}

	if _, err := s.repo.Leave(ctx, community.ID, actorID); err != nil {
		return dto.CommunityResponse{}, internal("leave community", err)
	}

	return s.Get(ctx, actorID, community.Name)
}

// recordJoin awards the join bonus once per community, even across leave/rejoin cycles.
func (s *communityService) recordJoin(ctx context.Context, userID uint, community models.Community) {
	if s.activities == nil {
		return
	}
	err := s.activities.RecordOnce(ctx, ActivityEntry{
		UserID:      userID,
		Type:        models.ActivityCommunityJoined,
		Description: fmt.Sprintf("Joined c/%s", community.Name),
		Points:      PointsCommunityJoined,
		EntityType:  "community",
		EntityID:    uintPtr(community.ID),
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Uint("community_id", community.ID).Msg("failed to record community join")
	}
}
