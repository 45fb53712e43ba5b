package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

// UserHandler serves public profiles, a user's posts and their karma ledger.
type UserHandler struct {
	users      service.AuthService
	posts      service.PostService
	activities service.ActivityService
	logger     zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.AuthService, posts service.PostService, activities service.ActivityService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:      users,
		posts:      posts,
		activities: activities,
		logger:     logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the user routes.
func (h *UserHandler) Register(router fiber.Router, guards Guards) {
	optional := guards.optional()
	router.Get("/:username", h.profile)
	router.Get("/:username/posts", optional, h.listPosts)
	router.Get("/:username/activity", h.activity)
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	profile, err := h.users.GetProfile(withRequestContext(c), c.Params("username"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile retrieved", profile)
}

func (h *UserHandler) listPosts(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	items, meta, err := h.posts.ListByUser(withRequestContext(c), userIDFromContext(c), c.Params("username"), page, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, items, "posts retrieved", meta)
}

func (h *UserHandler) activity(c *fiber.Ctx) error {
	var query dto.ActivityListQuery
	if err := c.QueryParser(&query); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	ctx := withRequestContext(c)
	profile, err := h.users.GetProfile(ctx, c.Params("username"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	feed, err := h.activities.List(ctx, profile.ID, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "activity retrieved", feed)
}
