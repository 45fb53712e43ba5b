package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

const headerCacheHit = "X-Cache-Hit"

// SearchHandler serves substring search over users, posts and communities.
type SearchHandler struct {
	service service.SearchService
	logger  zerolog.Logger
}

// NewSearchHandler constructs a search handler.
func NewSearchHandler(service service.SearchService, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger.With().Str("component", "search_handler").Logger(),
	}
}

// Register binds the search routes.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Get("/users", h.users)
	router.Get("/posts", h.posts)
	router.Get("/communities", h.communities)
}

func (h *SearchHandler) users(c *fiber.Ctx) error {
	query, err := parseSearchQuery(c)
	if err != nil {
		return badRequest(c, "invalid query parameters")
	}
	result, err := h.service.Users(withRequestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendSearchResult(c, "users found", result.Items, result.CacheHit)
}

func (h *SearchHandler) posts(c *fiber.Ctx) error {
	query, err := parseSearchQuery(c)
	if err != nil {
		return badRequest(c, "invalid query parameters")
	}
	result, err := h.service.Posts(withRequestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendSearchResult(c, "posts found", result.Items, result.CacheHit)
}

func (h *SearchHandler) communities(c *fiber.Ctx) error {
	query, err := parseSearchQuery(c)
	if err != nil {
		return badRequest(c, "invalid query parameters")
	}
	result, err := h.service.Communities(withRequestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendSearchResult(c, "communities found", result.Items, result.CacheHit)
}

func parseSearchQuery(c *fiber.Ctx) (dto.SearchQuery, error) {
	var query dto.SearchQuery
	err := c.QueryParser(&query)
	return query, err
}

func sendSearchResult(c *fiber.Ctx, message string, items interface{}, cacheHit bool) error {
	c.Set(headerCacheHit, strconv.FormatBool(cacheHit))
	return utils.SendSuccess(c, message, items)
}
