package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forumly-api/internal/handler"
	"github.com/noah-isme/forumly-api/internal/utils"
)

// testUserHeader lets tests pick the authenticated user without minting tokens.
const testUserHeader = "X-Test-User"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// testGuards mirrors the production guards: Required rejects anonymous callers,
// Optional attaches a user when one is named.
func testGuards() handler.Guards {
	attach := func(c *fiber.Ctx) bool {
		raw := c.Get(testUserHeader)
		if raw == "" {
			return false
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return false
		}
		c.Locals("user_id", uint(id))
		return true
	}

	return handler.Guards{
		Required: func(c *fiber.Ctx) error {
			if !attach(c) {
				return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
			}
			return c.Next()
		},
		Optional: func(c *fiber.Ctx) error {
			attach(c)
			return c.Next()
		},
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, userID uint, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != 0 {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(userID), 10))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var payload envelope
	decodeResponse(t, resp, &payload)
	return payload
}
