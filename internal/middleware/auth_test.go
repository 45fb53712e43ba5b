package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/auth"
	"github.com/noah-isme/forumly-api/internal/middleware"
	"github.com/noah-isme/forumly-api/internal/models"
)

type userFinderStub struct {
	users map[uint]models.User
	err   error
}

func (s userFinderStub) GetByID(ctx context.Context, id uint) (models.User, error) {
	if s.err != nil {
		return models.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func newAuthApp(tokens *auth.TokenManager, users middleware.UserFinder) *fiber.App {
	app := fiber.New()
	app.Get("/private", middleware.Authenticate(tokens, users, zerolog.Nop()), func(c *fiber.Ctx) error {
		id, _ := middleware.UserID(c)
		return c.JSON(fiber.Map{"user_id": id, "username": middleware.Username(c)})
	})
	app.Get("/public", middleware.OptionalAuthenticate(tokens, users), func(c *fiber.Ctx) error {
		id, ok := middleware.UserID(c)
		return c.JSON(fiber.Map{"user_id": id, "authenticated": ok})
	})
	app.Get("/identity", middleware.OptionalAuthenticate(tokens, users), func(c *fiber.Ctx) error {
		identity, ok := middleware.IdentityFromContext(c.UserContext())
		return c.JSON(fiber.Map{"user_id": identity.UserID, "username": identity.Username, "authenticated": ok})
	})
	app.Post("/public", middleware.OptionalAuthenticate(tokens, users), middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	}))
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, authorization string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := newAuthApp(tokens, userFinderStub{users: map[uint]models.User{7: {ID: 7, Username: "renamed"}}})

	token, _, err := tokens.Issue(7, "original")
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/private", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user_id":7,"username":"renamed"}`, body)

	resp, _ = doRequest(t, app, http.MethodGet, "/private", "bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthenticateRejections(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	expiredTokens := auth.NewTokenManager("secret", time.Hour, auth.WithClock(func() time.Time { return issuedAt }))
	tokens := auth.NewTokenManager("secret", time.Hour)
	otherSecret := auth.NewTokenManager("other", time.Hour)
	app := newAuthApp(tokens, userFinderStub{users: map[uint]models.User{1: {ID: 1, Username: "alice"}}})

	expired, _, err := expiredTokens.Issue(1, "alice")
	require.NoError(t, err)
	forged, _, err := otherSecret.Issue(1, "alice")
	require.NoError(t, err)
	orphan, _, err := tokens.Issue(99, "ghost")
	require.NoError(t, err)

	cases := []struct {
		name          string
		authorization string
		message       string
	}{
		{name: "missing header", authorization: "", message: "authorization header missing"},
		{name: "wrong scheme", authorization: "Basic abc", message: "invalid authorization header"},
		{name: "empty bearer", authorization: "Bearer    ", message: "invalid authorization header"},
		{name: "garbage", authorization: "Bearer not-a-jwt", message: "invalid token"},
		{name: "expired", authorization: "Bearer " + expired, message: "token expired"},
		{name: "bad signature", authorization: "Bearer " + forged, message: "invalid token"},
		{name: "deleted account", authorization: "Bearer " + orphan, message: "account no longer exists"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, app, http.MethodGet, "/private", tc.authorization)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Contains(t, body, tc.message)
		})
	}
}

func TestAuthenticateStoreFailure(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := newAuthApp(tokens, userFinderStub{err: errors.New("connection refused")})

	token, _, err := tokens.Issue(1, "alice")
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/private", "Bearer "+token)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.NotContains(t, body, "connection refused")
}

func TestOptionalAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := newAuthApp(tokens, userFinderStub{users: map[uint]models.User{3: {ID: 3, Username: "carol"}}})

	resp, body := doRequest(t, app, http.MethodGet, "/public", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user_id":0,"authenticated":false}`, body)

	token, _, err := tokens.Issue(3, "carol")
	require.NoError(t, err)
	resp, body = doRequest(t, app, http.MethodGet, "/public", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user_id":3,"authenticated":true}`, body)

	resp, _ = doRequest(t, app, http.MethodGet, "/public", "Bearer broken")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthRequiresUser(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := newAuthApp(tokens, userFinderStub{users: map[uint]models.User{3: {ID: 3, Username: "carol"}}})

	resp, _ := doRequest(t, app, http.MethodPost, "/public", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, _, err := tokens.Issue(3, "carol")
	require.NoError(t, err)
	resp, _ = doRequest(t, app, http.MethodPost, "/public", "Bearer "+token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	app := fiber.New()
	app.Post("/login", middleware.RateLimit("auth", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, _ := doRequest(t, app, http.MethodPost, "/login", "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, _ := doRequest(t, app, http.MethodPost, "/login", "")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestCorrelationIDPropagates(t *testing.T) {
	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	app.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "abc-123", string(body))
}

func TestAuthenticatedIdentityReachesUserContext(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	app := newAuthApp(tokens, userFinderStub{users: map[uint]models.User{4: {ID: 4, Username: "dora"}}})

	token, _, err := tokens.Issue(4, "dora")
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/identity", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user_id":4,"username":"dora","authenticated":true}`, body)

	resp, body = doRequest(t, app, http.MethodGet, "/identity", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"user_id":0,"username":"","authenticated":false}`, body)

	_, ok := middleware.IdentityFromContext(context.Background())
	require.False(t, ok)
}
