package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/auth"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/utils"
)

const (
	localUserID   = "user_id"
	localUsername = "username"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserFinder loads the account a token refers to.
type UserFinder interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
}

var (
	errTokenMissing    = errors.New("authorization header missing")
	errHeaderMalformed = errors.New("invalid authorization header")
)

type authFailure struct {
	status  int
	message string
}

func (f *authFailure) Error() string {
	return f.message
}

// Authenticate requires a valid bearer token whose user still exists. Websocket
// upgrades may pass the token as the "token" query parameter instead.
func Authenticate(verifier TokenVerifier, users UserFinder, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		user, err := resolveUser(c, verifier, users, token)
		if err != nil {
			var failure *authFailure
			if errors.As(err, &failure) {
				return utils.SendError(c, failure.status, failure.message)
			}
			log.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to load authenticated user")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}

		setUser(c, user)
		return c.Next()
	}
}

// OptionalAuthenticate attaches the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthenticate(verifier TokenVerifier, users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return c.Next()
		}
		if user, err := resolveUser(c, verifier, users, token); err == nil {
			setUser(c, user)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok && id != 0
}

// Username returns the authenticated username, if any.
func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(localUsername).(string)
	return name
}

func resolveUser(c *fiber.Ctx, verifier TokenVerifier, users UserFinder, token string) (models.User, error) {
	claims, err := verifier.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return models.User{}, &authFailure{status: fiber.StatusUnauthorized, message: "token expired"}
		}
		return models.User{}, &authFailure{status: fiber.StatusUnauthorized, message: "invalid token"}
	}

	userID, err := claims.UserID()
	if err != nil {
		return models.User{}, &authFailure{status: fiber.StatusUnauthorized, message: "invalid token"}
	}

	user, err := users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, &authFailure{status: fiber.StatusUnauthorized, message: "account no longer exists"}
		}
		return models.User{}, err
	}
	return user, nil
}

func extractToken(c *fiber.Ctx) (string, error) {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authorization != "" {
		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return "", errHeaderMalformed
		}
		token := strings.TrimSpace(authorization[len(bearer):])
		if token == "" {
			return "", errHeaderMalformed
		}
		return token, nil
	}

	if websocket.IsWebSocketUpgrade(c) {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			return token, nil
		}
	}
	return "", errTokenMissing
}

func setUser(c *fiber.Ctx, user models.User) {
	c.Locals(localUserID, user.ID)
	c.Locals(localUsername, user.Username)
	c.SetUserContext(ContextWithIdentity(c.UserContext(), Identity{UserID: user.ID, Username: user.Username}))
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID   uint
	Username string
}

type identityKey struct{}

// ContextWithIdentity attaches the caller identity to ctx.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller stored by Authenticate or
// OptionalAuthenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok && identity.UserID != 0
}
