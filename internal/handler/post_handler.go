package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

// PostHandler provides HTTP endpoints for posts and votes.
type PostHandler struct {
	posts  service.PostService
	votes  service.VoteService
	logger zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(posts service.PostService, votes service.VoteService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		votes:  votes,
		logger: logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds the post routes.
func (h *PostHandler) Register(router fiber.Router, guards Guards) {
	optional := guards.optional()
	required := guards.required()

	router.Get("", optional, h.list)
	router.Post("", required, h.create)
	router.Get("/:id", optional, h.get)
	router.Put("/:id", required, h.update)
	router.Delete("/:id", required, h.delete)
	router.Post("/:id/vote", required, h.vote)
	router.Delete("/:id/vote", required, h.unvote)
}

func (h *PostHandler) list(c *fiber.Ctx) error {
	var query dto.PostListQuery
	if err := c.QueryParser(&query); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	items, meta, err := h.posts.List(withRequestContext(c), userIDFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, items, "posts retrieved", meta)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	post, err := h.posts.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.posts.Get(withRequestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post retrieved", post)
}

func (h *PostHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.PostUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	post, err := h.posts.Update(withRequestContext(c), userIDFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post updated", post)
}

func (h *PostHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.posts.Delete(withRequestContext(c), userIDFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post deleted", nil)
}

func (h *PostHandler) vote(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.VoteRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	post, err := h.votes.Cast(withRequestContext(c), userIDFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "vote recorded", post)
}

func (h *PostHandler) unvote(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.votes.Remove(withRequestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "vote removed", post)
}
