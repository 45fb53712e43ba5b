package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/forumly-api/internal/middleware"
)

// Guards are the per-route middlewares handlers attach while registering.
// Nil Optional and AuthRateLimit guards let the request through untouched. A nil
// Required guard only admits callers an earlier middleware already authenticated.
type Guards struct {
	Required      fiber.Handler
	Optional      fiber.Handler
	AuthRateLimit fiber.Handler
}

func (g Guards) required() fiber.Handler {
	if g.Required != nil {
		return g.Required
	}
	return middleware.WithAuth(next)
}

func (g Guards) optional() fiber.Handler {
	return orPassthrough(g.Optional)
}

func (g Guards) authRateLimit() fiber.Handler {
	return orPassthrough(g.AuthRateLimit)
}

func orPassthrough(handler fiber.Handler) fiber.Handler {
	if handler != nil {
		return handler
	}
	return next
}

func next(c *fiber.Ctx) error { return c.Next() }
