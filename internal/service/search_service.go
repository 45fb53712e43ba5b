package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/observability"
	"github.com/noah-isme/forumly-api/internal/repository"
)

const (
	searchDefaultLimit = 20
	searchMaxLimit     = 50
)

// SearchService runs case-insensitive substring searches across users, posts and communities.
type SearchService interface {
	Users(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.UserSummary], error)
	Posts(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.PostResponse], error)
	Communities(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.CommunityResponse], error)
}

type searchService struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	communities repository.CommunityRepository
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewSearchService constructs the search service. cache may be nil.
func NewSearchService(users repository.UserRepository, posts repository.PostRepository, communities repository.CommunityRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) SearchService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &searchService{
		users:       users,
		posts:       posts,
		communities: communities,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "search_service").Logger(),
	}
}

func (s *searchService) Users(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.UserSummary], error) {
	return cachedSearch(ctx, s, "users", query, func(term string, limit int) ([]dto.UserSummary, error) {
		users, err := s.users.Search(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		items := make([]dto.UserSummary, 0, len(users))
		for _, user := range users {
			items = append(items, dto.NewUserSummary(user))
		}
		return items, nil
	})
}

func (s *searchService) Posts(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.PostResponse], error) {
	return cachedSearch(ctx, s, "posts", query, func(term string, limit int) ([]dto.PostResponse, error) {
		posts, err := s.posts.Search(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		return dto.NewPostResponseSlice(posts, 0), nil
	})
}

func (s *searchService) Communities(ctx context.Context, query dto.SearchQuery) (dto.SearchResult[dto.CommunityResponse], error) {
	return cachedSearch(ctx, s, "communities", query, func(term string, limit int) ([]dto.CommunityResponse, error) {
		communities, err := s.communities.Search(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		return dto.NewCommunityResponseSlice(communities), nil
	})
}

// cachedSearch normalises the query, consults redis and falls back to load.
// A blank query never reaches the store.
func cachedSearch[T any](ctx context.Context, s *searchService, entity string, query dto.SearchQuery, load func(term string, limit int) ([]T, error)) (dto.SearchResult[T], error) {
	term := strings.ToLower(strings.TrimSpace(query.Query))
	if term == "" {
		observability.SearchRequests().WithLabelValues(entity, "empty").Inc()
		return dto.SearchResult[T]{Items: []T{}}, nil
	}
	limit := clampSearchLimit(query.Limit)
	key := searchCacheKey(entity, term, limit)

	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var items []T
			if err := json.Unmarshal(payload, &items); err == nil {
				observability.SearchRequests().WithLabelValues(entity, "hit").Inc()
				return dto.SearchResult[T]{Items: items, CacheHit: true}, nil
			}
			s.logger.Warn().Str("key", key).Msg("failed to decode search cache")
		}
	}

	items, err := load(term, limit)
	if err != nil {
		return dto.SearchResult[T]{}, internal("search "+entity, err)
	}
	if items == nil {
		items = []T{}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(items); err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode search cache")
		} else if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store search cache")
		}
	}

	observability.SearchRequests().WithLabelValues(entity, "miss").Inc()
	return dto.SearchResult[T]{Items: items}, nil
}

func clampSearchLimit(limit int) int {
	if limit <= 0 {
		return searchDefaultLimit
	}
	if limit > searchMaxLimit {
		return searchMaxLimit
	}
	return limit
}

func searchCacheKey(entity, term string, limit int) string {
	return strings.Join([]string{"search:v1", entity, strconv.Itoa(limit), term}, ":")
}
