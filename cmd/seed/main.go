package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/auth"
	"github.com/noah-isme/forumly-api/internal/config"
	"github.com/noah-isme/forumly-api/internal/database"
	"github.com/noah-isme/forumly-api/internal/repository"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

func main() {
	users := flag.Int("users", 10, "number of accounts to create")
	communities := flag.Int("communities", 3, "number of communities to create")
	posts := flag.Int("posts", 5, "posts per community")
	comments := flag.Int("comments", 3, "comments per post")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for generated content")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("cmd", "seed").Logger()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	validate := utils.NewValidator()
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	activities := service.NewActivityService(repository.NewActivityRepository(db), validate, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:    userRepo,
		Posts:    postRepo,
		Comments: commentRepo,
		Karma:    activities,
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
	}, validate, logger)

	seeder := service.NewSeedService(
		authService,
		service.NewCommunityService(communityRepo, activities, validate, logger),
		service.NewPostService(postRepo, communityRepo, userRepo, activities, validate, logger),
		service.NewCommentService(commentRepo, postRepo, activities, validate, logger),
		service.NewVoteService(repository.NewVoteRepository(db), postRepo, validate, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := seeder.Seed(ctx, service.SeedOptions{
		Users:             *users,
		Communities:       *communities,
		PostsPerCommunity: *posts,
		CommentsPerPost:   *comments,
		Seed:              *seed,
	})
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	logger.Info().Interface("report", report).Str("password", service.SeedPassword).Msg("demo data ready")
}
