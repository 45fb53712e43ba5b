package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/forumly-api/internal/utils"
)

// WithAuth guards a single handler mounted behind OptionalAuthenticate so it
// only runs for authenticated callers.
func WithAuth(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		return handler(c)
	}
}
