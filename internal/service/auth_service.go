package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/auth"
	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/observability"
	"github.com/noah-isme/forumly-api/internal/repository"
)

const (
	maxUsernameBase      = 20
	shortSuffixAttempts  = 5
	externalUsernameSeed = "user"
)

var (
	usernamePattern  = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	usernameStripper = regexp.MustCompile(`[^a-z0-9_]`)
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, time.Time, error)
}

// KarmaReader resolves a user's karma.
type KarmaReader interface {
	Karma(ctx context.Context, userID uint) (int64, error)
}

// AuthService exposes account use-cases.
type AuthService interface {
	Signup(ctx context.Context, payload dto.SignupRequest) (dto.ProfileResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	ExternalLogin(ctx context.Context, payload dto.ExternalLoginRequest) (dto.AuthResponse, error)
	Me(ctx context.Context, userID uint) (dto.ProfileResponse, error)
	GetProfile(ctx context.Context, username string) (dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uint, payload dto.UpdateProfileRequest) (dto.ProfileResponse, error)
	ChangePassword(ctx context.Context, userID uint, payload dto.ChangePasswordRequest) error
	SetPresence(ctx context.Context, userID uint, payload dto.PresenceRequest) (dto.ProfileResponse, error)
}

// AuthDependencies groups collaborators for the auth service.
type AuthDependencies struct {
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository
	Karma    KarmaReader
	Tokens   TokenIssuer
	External auth.ExternalVerifier
}

type authService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	karma     KarmaReader
	tokens    TokenIssuer
	external  auth.ExternalVerifier
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	suffix    func(digits int) string
	now       func() time.Time
}

// NewAuthService constructs the account service. External may be nil, in which
// case external login reports the feature as unavailable.
func NewAuthService(deps AuthDependencies, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     deps.Users,
		posts:     deps.Posts,
		comments:  deps.Comments,
		karma:     deps.Karma,
		tokens:    deps.Tokens,
		external:  deps.External,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/forumly-api/internal/service/auth"),
		suffix:    randomDigits,
		now:       time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, payload dto.SignupRequest) (dto.ProfileResponse, error) {
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Username = strings.TrimSpace(payload.Username)

	if err := s.validator.Struct(payload); err != nil {
		observability.AuthAttempts().WithLabelValues("signup", "invalid").Inc()
		return dto.ProfileResponse{}, err
	}
	if !usernamePattern.MatchString(payload.Username) {
		observability.AuthAttempts().WithLabelValues("signup", "invalid").Inc()
		return dto.ProfileResponse{}, validationError("username may only contain letters, digits and underscores")
	}

	emailTaken, err := s.users.EmailExists(ctx, payload.Email)
	if err != nil {
		return dto.ProfileResponse{}, internal("check email", err)
	}
	if emailTaken {
		observability.AuthAttempts().WithLabelValues("signup", "conflict").Inc()
		return dto.ProfileResponse{}, ErrEmailTaken
	}

	usernameTaken, err := s.users.UsernameExists(ctx, payload.Username)
	if err != nil {
		return dto.ProfileResponse{}, internal("check username", err)
	}
	if usernameTaken {
		observability.AuthAttempts().WithLabelValues("signup", "conflict").Inc()
		return dto.ProfileResponse{}, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return dto.ProfileResponse{}, internal("hash password", err)
	}

	user := models.User{
		Email:        payload.Email,
		Username:     payload.Username,
		PasswordHash: hash,
		PasswordSet:  true,
		DisplayName:  payload.Username,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.AuthAttempts().WithLabelValues("signup", "conflict").Inc()
			return dto.ProfileResponse{}, conflict("email or username already taken")
		}
		return dto.ProfileResponse{}, internal("create user", err)
	}

	observability.AuthAttempts().WithLabelValues("signup", "success").Inc()
	s.logger.Info().Uint("user_id", user.ID).Msg("account created")

	return dto.NewPrivateProfileResponse(user), nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AuthAttempts().WithLabelValues("password", "rejected").Inc()
			span.SetStatus(codes.Error, "invalid credentials")
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		span.RecordError(err)
		return dto.AuthResponse{}, internal("load user", err)
	}

	if !auth.VerifyPassword(payload.Password, user.PasswordHash) {
		observability.AuthAttempts().WithLabelValues("password", "rejected").Inc()
		span.SetStatus(codes.Error, "invalid credentials")
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.Int("auth.user_id", int(user.ID)))
	observability.AuthAttempts().WithLabelValues("password", "success").Inc()
	return s.issue(ctx, user)
}

func (s *authService) ExternalLogin(ctx context.Context, payload dto.ExternalLoginRequest) (dto.AuthResponse, error) {
	if s.external == nil {
		return dto.AuthResponse{}, ErrExternalLoginDisabled
	}

	ctx, span := s.tracer.Start(ctx, "auth.external_login")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, err
	}

	identity, err := s.external.Verify(ctx, payload.Credential)
	if err != nil {
		observability.AuthAttempts().WithLabelValues("google", "rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "external token rejected")
		if errors.Is(err, auth.ErrExternalTokenInvalid) {
			return dto.AuthResponse{}, ErrExternalTokenInvalid
		}
		return dto.AuthResponse{}, &Error{Kind: KindUnauthenticated, Message: ErrExternalTokenInvalid.Message, Err: err}
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		observability.AuthAttempts().WithLabelValues("google", "rejected").Inc()
		return dto.AuthResponse{}, ErrMissingEmail
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createExternalUser(ctx, email, identity)
		if err != nil {
			span.RecordError(err)
			return dto.AuthResponse{}, err
		}
	case err != nil:
		span.RecordError(err)
		return dto.AuthResponse{}, internal("load user", err)
	case !user.HasExternalIdentity() && identity.Subject != "":
		subject := identity.Subject
		user.GoogleID = &subject
		if user.AvatarURL == "" {
			user.AvatarURL = identity.Picture
		}
		if err := s.users.Update(ctx, &user); err != nil {
			span.RecordError(err)
			return dto.AuthResponse{}, internal("link external identity", err)
		}
		s.logger.Info().Uint("user_id", user.ID).Msg("linked google identity to existing account")
	}

	observability.AuthAttempts().WithLabelValues("google", "success").Inc()
	return s.issue(ctx, user)
}

func (s *authService) createExternalUser(ctx context.Context, email string, identity auth.ExternalIdentity) (models.User, error) {
	username, err := s.uniqueUsername(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	placeholder, err := auth.RandomPassword()
	if err != nil {
		return models.User{}, internal("generate placeholder password", err)
	}
	hash, err := auth.HashPassword(placeholder)
	if err != nil {
		return models.User{}, internal("hash password", err)
	}

	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(identity.Name),
		AvatarURL:    identity.Picture,
	}
	if identity.Subject != "" {
		subject := identity.Subject
		user.GoogleID = &subject
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent login for the same email won the insert.
			existing, lookupErr := s.users.GetByEmail(ctx, email)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return models.User{}, internal("create user", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("account created from google identity")
	return user, nil
}

// uniqueUsername derives a username from the email local part, adding a
// numeric suffix until it no longer collides.
func (s *authService) uniqueUsername(ctx context.Context, email string) (string, error) {
	base := UsernameFromEmail(email)

	taken, err := s.users.UsernameExists(ctx, base)
	if err != nil {
		return "", internal("check username", err)
	}
	if !taken {
		return base, nil
	}

	for attempt := 0; attempt < shortSuffixAttempts+1; attempt++ {
		digits := 4
		if attempt == shortSuffixAttempts {
			digits = 6
		}
		candidate := base + s.suffix(digits)
		taken, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", internal("check username", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", conflict("could not allocate a unique username")
}

// UsernameFromEmail turns an email local part into a username candidate.
func UsernameFromEmail(email string) string {
	local := strings.ToLower(strings.TrimSpace(email))
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	local = usernameStripper.ReplaceAllString(local, "")
	if len(local) > maxUsernameBase {
		local = local[:maxUsernameBase]
	}
	if len(local) < 3 {
		local = externalUsernameSeed + local
	}
	return local
}

func randomDigits(digits int) string {
	low := 1
	for i := 1; i < digits; i++ {
		low *= 10
	}
	return fmt.Sprintf("%d", low+rand.Intn(9*low))
}

func (s *authService) issue(ctx context.Context, user models.User) (dto.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return dto.AuthResponse{}, internal("issue token", err)
	}

	profile, err := s.withCounters(ctx, dto.NewPrivateProfileResponse(user))
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{Token: token, ExpiresAt: expiresAt, User: profile}, nil
}

func (s *authService) Me(ctx context.Context, userID uint) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, notFoundOr("user", err)
	}
	return s.withCounters(ctx, dto.NewPrivateProfileResponse(user))
}

func (s *authService) GetProfile(ctx context.Context, username string) (dto.ProfileResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return dto.ProfileResponse{}, notFoundOr("user", err)
	}
	return s.withCounters(ctx, dto.NewProfileResponse(user))
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, payload dto.UpdateProfileRequest) (dto.ProfileResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, notFoundOr("user", err)
	}

	if payload.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*payload.DisplayName)
	}
	if payload.Bio != nil {
		user.Bio = strings.TrimSpace(*payload.Bio)
	}
	if payload.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*payload.AvatarURL)
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.ProfileResponse{}, internal("update profile", err)
	}

	return s.withCounters(ctx, dto.NewPrivateProfileResponse(user))
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, payload dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr("user", err)
	}

	if user.PasswordSet || !user.HasExternalIdentity() {
		if payload.CurrentPassword == "" {
			return validationError("current password is required")
		}
		if !auth.VerifyPassword(payload.CurrentPassword, user.PasswordHash) {
			return ErrInvalidCredentials
		}
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		return internal("hash password", err)
	}
	user.PasswordHash = hash
	user.PasswordSet = true

	if err := s.users.Update(ctx, &user); err != nil {
		return internal("update password", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("password changed")
	return nil
}

func (s *authService) SetPresence(ctx context.Context, userID uint, payload dto.PresenceRequest) (dto.ProfileResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	if err := s.users.SetPresence(ctx, userID, *payload.Online, s.now()); err != nil {
		return dto.ProfileResponse{}, notFoundOr("user", err)
	}

	return s.Me(ctx, userID)
}

func (s *authService) withCounters(ctx context.Context, profile dto.ProfileResponse) (dto.ProfileResponse, error) {
	if s.karma != nil {
		karma, err := s.karma.Karma(ctx, profile.ID)
		if err != nil {
			return dto.ProfileResponse{}, err
		}
		profile.Karma = karma
	}
	if s.posts != nil {
		count, err := s.posts.CountByAuthor(ctx, profile.ID)
		if err != nil {
			return dto.ProfileResponse{}, internal("count posts", err)
		}
		profile.PostCount = count
	}
	if s.comments != nil {
		count, err := s.comments.CountByAuthor(ctx, profile.ID)
		if err != nil {
			return dto.ProfileResponse{}, internal("count comments", err)
		}
		profile.CommentCount = count
	}
	return profile, nil
}
