package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/middleware"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusBadRequest, message)
}

// respondError writes the envelope for a service error. Internal failures are
// logged with the correlation id and never echoed to the client.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	message := service.PublicMessage(err)

	switch service.KindOf(err) {
	case service.KindValidation:
		var details interface{}
		if fields := service.ValidationDetails(err); len(fields) > 0 {
			details = fields
		}
		return utils.Fail(c, fiber.StatusBadRequest, message, details)
	case service.KindUnauthenticated:
		return utils.SendError(c, fiber.StatusUnauthorized, message)
	case service.KindForbidden:
		return utils.SendError(c, fiber.StatusForbidden, message)
	case service.KindNotFound:
		return utils.SendError(c, fiber.StatusNotFound, message)
	case service.KindConflict:
		return utils.SendError(c, fiber.StatusConflict, message)
	case service.KindUnavailable:
		return utils.SendError(c, fiber.StatusServiceUnavailable, message)
	default:
		reqLogger := middleware.RequestLogger(c, logger)
		reqLogger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
