package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/forumly-api/internal/config"
	"github.com/noah-isme/forumly-api/internal/handler"
	"github.com/noah-isme/forumly-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	PostHandler      *handler.PostHandler
	CommentHandler   *handler.CommentHandler
	CommunityHandler *handler.CommunityHandler
	ChatHandler      *handler.ChatHandler
	SearchHandler    *handler.SearchHandler
	UploadHandler    *handler.UploadHandler
	HealthProbes     map[string]handler.HealthProbe
	Guards           handler.Guards
	ExposeMetrics    bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), deps.Guards)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"), deps.Guards)
	}
	if deps.PostHandler != nil {
		deps.PostHandler.Register(api.Group("/posts"), deps.Guards)
	}
	if deps.CommentHandler != nil {
		deps.CommentHandler.Register(api.Group("/comments"), deps.Guards)
	}
	if deps.CommunityHandler != nil {
		deps.CommunityHandler.Register(api.Group("/communities"), deps.Guards)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chat"), deps.Guards)
	}
	if deps.SearchHandler != nil {
		deps.SearchHandler.Register(api.Group("/search"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(api.Group("/uploads"), deps.Guards)
	}
}
