package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
)

// SeedPassword is the password given to every seeded account.
const SeedPassword = "forumly-seed-pass"

// SeedOptions controls how much demo content is generated.
type SeedOptions struct {
	Users             int
	Communities       int
	PostsPerCommunity int
	CommentsPerPost   int
	Seed              int64
}

// SeedReport summarises what a seeding run created.
type SeedReport struct {
	Users       int `json:"users"`
	Communities int `json:"communities"`
	Posts       int `json:"posts"`
	Comments    int `json:"comments"`
	Votes       int `json:"votes"`
}

// SeedService fills an empty database with demo content. Everything goes through
// the regular services so karma and counters stay consistent.
type SeedService interface {
	Seed(ctx context.Context, opts SeedOptions) (SeedReport, error)
}

type seedService struct {
	auth        AuthService
	communities CommunityService
	posts       PostService
	comments    CommentService
	votes       VoteService
	logger      zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(auth AuthService, communities CommunityService, posts PostService, comments CommentService, votes VoteService, logger zerolog.Logger) SeedService {
	return &seedService{
		auth:        auth,
		communities: communities,
		posts:       posts,
		comments:    comments,
		votes:       votes,
		logger:      logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) Seed(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	opts = normalizeSeedOptions(opts)
	faker := gofakeit.New(opts.Seed)
	var report SeedReport

	userIDs := make([]uint, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		username := seedHandle(faker.Username(), i)
		profile, err := s.auth.Signup(ctx, dto.SignupRequest{
			Email:    fmt.Sprintf("%s@seed.forumly.dev", username),
			Username: username,
			Password: SeedPassword,
		})
		if KindOf(err) == KindConflict {
			profile, err = s.auth.GetProfile(ctx, username)
		} else if err == nil {
			report.Users++
		}
		if err != nil {
			return report, fmt.Errorf("seed user %s: %w", username, err)
		}
		userIDs = append(userIDs, profile.ID)
	}

	for c := 0; c < opts.Communities; c++ {
		owner := userIDs[c%len(userIDs)]
		name := seedHandle(faker.HackerNoun(), c)
		_, err := s.communities.Create(ctx, owner, dto.CommunityCreateRequest{
			Name:        name,
			Description: faker.Sentence(10),
		})
		switch {
		case err == nil:
			report.Communities++
		case KindOf(err) != KindConflict:
			return report, fmt.Errorf("seed community %s: %w", name, err)
		}

		for _, member := range userIDs {
			if member == owner || !faker.Bool() {
				continue
			}
			if _, err := s.communities.Join(ctx, member, name); err != nil {
				return report, fmt.Errorf("join community %s: %w", name, err)
			}
		}

		for p := 0; p < opts.PostsPerCommunity; p++ {
			author := userIDs[faker.IntRange(0, len(userIDs)-1)]
			post, err := s.posts.Create(ctx, author, dto.PostCreateRequest{
				Title:         strings.TrimSuffix(faker.HackerPhrase(), "!"),
				Content:       faker.Paragraph(2, 3, 12, "\n\n"),
				CommunityName: name,
				Tags:          []string{faker.HackerAdjective(), faker.HackerVerb()},
			})
			if err != nil {
				return report, fmt.Errorf("seed post: %w", err)
			}
			report.Posts++

			for k := 0; k < opts.CommentsPerPost; k++ {
				commenter := userIDs[faker.IntRange(0, len(userIDs)-1)]
				if _, err := s.comments.Create(ctx, commenter, dto.CommentCreateRequest{
					PostID:  post.ID,
					Content: faker.Sentence(faker.IntRange(4, 16)),
				}); err != nil {
					return report, fmt.Errorf("seed comment: %w", err)
				}
				report.Comments++
			}

			for _, voter := range userIDs {
				if voter == author || faker.IntRange(0, 2) == 0 {
					continue
				}
				direction := "up"
				if faker.IntRange(0, 3) == 0 {
					direction = "down"
				}
				if _, err := s.votes.Cast(ctx, voter, post.ID, dto.VoteRequest{Direction: direction}); err != nil {
					return report, fmt.Errorf("seed vote: %w", err)
				}
				report.Votes++
			}
		}
	}

	s.logger.Info().
		Int("users", report.Users).
		Int("communities", report.Communities).
		Int("posts", report.Posts).
		Int("comments", report.Comments).
		Int("votes", report.Votes).
		Msg("seed completed")

	return report, nil
}

func normalizeSeedOptions(opts SeedOptions) SeedOptions {
	if opts.Users < 2 {
		opts.Users = 2
	}
	if opts.Communities < 0 {
		opts.Communities = 0
	}
	if opts.PostsPerCommunity < 0 {
		opts.PostsPerCommunity = 0
	}
	if opts.CommentsPerPost < 0 {
		opts.CommentsPerPost = 0
	}
	return opts
}

// seedHandle turns arbitrary fake words into a valid, unique username or
// community name.
func seedHandle(raw string, index int) string {
	base := usernameStripper.ReplaceAllString(strings.ToLower(raw), "")
	if len(base) < 3 {
		base = "forumly"
	}
	suffix := fmt.Sprintf("_%d", index)
	if len(base)+len(suffix) > 32 {
		base = base[:32-len(suffix)]
	}
	return base + suffix
}
