package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

// CommunityHandler provides HTTP endpoints for communities and membership.
type CommunityHandler struct {
	service service.CommunityService
	logger  zerolog.Logger
}

// NewCommunityHandler constructs a community handler.
func NewCommunityHandler(service service.CommunityService, logger zerolog.Logger) *CommunityHandler {
	return &CommunityHandler{
		service: service,
		logger:  logger.With().Str("component", "community_handler").Logger(),
	}
}

// Register binds the community routes.
func (h *CommunityHandler) Register(router fiber.Router, guards Guards) {
	required := guards.required()
	router.Get("", h.list)
	router.Post("", required, h.create)
	router.Get("/:name", guards.optional(), h.get)
	router.Post("/:name/join", required, h.join)
	router.Delete("/:name/join", required, h.leave)
}

func (h *CommunityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	items, meta, err := h.service.List(withRequestContext(c), page, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, items, "communities retrieved", meta)
}

func (h *CommunityHandler) create(c *fiber.Ctx) error {
	var payload dto.CommunityCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	community, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "community created", community)
}

func (h *CommunityHandler) get(c *fiber.Ctx) error {
	community, err := h.service.Get(withRequestContext(c), userIDFromContext(c), c.Params("name"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "community retrieved", community)
}

func (h *CommunityHandler) join(c *fiber.Ctx) error {
	community, err := h.service.Join(withRequestContext(c), userIDFromContext(c), c.Params("name"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "joined community", community)
}

func (h *CommunityHandler) leave(c *fiber.Ctx) error {
	community, err := h.service.Leave(withRequestContext(c), userIDFromContext(c), c.Params("name"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "left community", community)
}
