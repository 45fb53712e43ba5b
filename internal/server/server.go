package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/auth"
	"github.com/noah-isme/forumly-api/internal/config"
	"github.com/noah-isme/forumly-api/internal/handler"
	"github.com/noah-isme/forumly-api/internal/middleware"
	"github.com/noah-isme/forumly-api/internal/repository"
	"github.com/noah-isme/forumly-api/internal/router"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

// Infrastructure carries the connections the API runs on. Only DB is required.
type Infrastructure struct {
	DB       *gorm.DB
	Redis    *redis.Client
	NATS     *nats.Conn
	Storage  service.FileStorage
	Verifier auth.ExternalVerifier
}

// Server is the assembled HTTP application plus the chat hub it feeds.
type Server struct {
	App    *fiber.App
	Hub    *service.ChatHub
	cfg    config.Config
	logger zerolog.Logger
	cancel context.CancelFunc
}

// New wires repositories, services and handlers. ctx bounds background work
// such as chat fan-out consumers and open websocket streams.
func New(ctx context.Context, cfg config.Config, infra Infrastructure, logger zerolog.Logger) (*Server, error) {
	if infra.DB == nil {
		return nil, errors.New("database connection is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	validate := utils.NewValidator()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := repository.NewUserRepository(infra.DB)
	postRepo := repository.NewPostRepository(infra.DB)
	commentRepo := repository.NewCommentRepository(infra.DB)
	communityRepo := repository.NewCommunityRepository(infra.DB)

	activityService := service.NewActivityService(repository.NewActivityRepository(infra.DB), validate, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:    userRepo,
		Posts:    postRepo,
		Comments: commentRepo,
		Karma:    activityService,
		Tokens:   tokens,
		External: infra.Verifier,
	}, validate, logger)
	postService := service.NewPostService(postRepo, communityRepo, userRepo, activityService, validate, logger)
	voteService := service.NewVoteService(repository.NewVoteRepository(infra.DB), postRepo, validate, logger)
	commentService := service.NewCommentService(commentRepo, postRepo, activityService, validate, logger)
	communityService := service.NewCommunityService(communityRepo, activityService, validate, logger)
	searchService := service.NewSearchService(userRepo, postRepo, communityRepo, infra.Redis, cfg.SearchCacheTTL, logger)
	uploadService := service.NewUploadService(infra.Storage, repository.NewUploadRepository(infra.DB), cfg.UploadMaxSizeMB, logger)

	hub := service.NewChatHub(infra.Redis, cfg.ChatChannel, infra.NATS, logger)
	chatService := service.NewChatService(repository.NewChatRepository(infra.DB), userRepo, hub, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
		ErrorHandler: errorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, logger),
		UserHandler:      handler.NewUserHandler(authService, postService, activityService, logger),
		PostHandler:      handler.NewPostHandler(postService, voteService, logger),
		CommentHandler:   handler.NewCommentHandler(commentService, logger),
		CommunityHandler: handler.NewCommunityHandler(communityService, logger),
		ChatHandler:      handler.NewChatHandler(ctx, chatService, hub, logger),
		SearchHandler:    handler.NewSearchHandler(searchService, logger),
		UploadHandler:    handler.NewUploadHandler(uploadService, logger),
		HealthProbes:     healthProbes(infra),
		Guards: handler.Guards{
			Required:      middleware.Authenticate(tokens, userRepo, logger),
			Optional:      middleware.OptionalAuthenticate(tokens, userRepo),
			AuthRateLimit: middleware.RateLimit("auth", cfg.AuthRateLimit, cfg.AuthRateWindow),
		},
		ExposeMetrics: true,
	})

	hub.Start(ctx)

	return &Server{
		App:    app,
		Hub:    hub,
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		cancel: cancel,
	}, nil
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.cfg.HTTPAddress()).Msg("http server listening")
	return s.App.Listen(s.cfg.HTTPAddress())
}

// Shutdown stops background work and drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.App.ShutdownWithContext(ctx)
}

func healthProbes(infra Infrastructure) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := infra.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if infra.Redis != nil {
		probes["redis"] = func(ctx context.Context) error {
			return infra.Redis.Ping(ctx).Err()
		}
	}
	if infra.NATS != nil {
		probes["nats"] = func(ctx context.Context) error {
			if !infra.NATS.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return probes
}

// errorHandler renders errors that escape handlers, such as unknown routes or
// oversized bodies, with the standard envelope.
func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return utils.SendError(c, fiberErr.Code, fiberErr.Message)
		}
		reqLogger := middleware.RequestLogger(c, logger)
		reqLogger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
