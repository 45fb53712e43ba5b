package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/handler"
	"github.com/noah-isme/forumly-api/internal/service"
)

type chatServiceStub struct {
	rooms      map[string]dto.ChatRoomResponse
	members    map[uint]bool
	fetchPage  int
	fetchLimit int
}

func newChatServiceStub() *chatServiceStub {
	return &chatServiceStub{rooms: map[string]dto.ChatRoomResponse{}, members: map[uint]bool{1: true, 2: true}}
}

func (s *chatServiceStub) StartDirectChat(ctx context.Context, actorID uint, username string) (dto.ChatRoomResponse, bool, error) {
	if username == "ghost" {
		return dto.ChatRoomResponse{}, false, &service.Error{Kind: service.KindNotFound, Message: "user not found"}
	}
	if room, ok := s.rooms[username]; ok {
		return room, false, nil
	}
	room := dto.ChatRoomResponse{ID: uint(len(s.rooms) + 1), Members: []dto.UserSummary{{ID: actorID}, {ID: 2, Username: username}}}
	s.rooms[username] = room
	return room, true, nil
}

func (s *chatServiceStub) ListRooms(ctx context.Context, actorID uint) ([]dto.ChatRoomResponse, error) {
	return []dto.ChatRoomResponse{}, nil
}

func (s *chatServiceStub) GetRoom(ctx context.Context, actorID, roomID uint) (dto.ChatRoomResponse, error) {
	if err := s.Authorize(ctx, actorID, roomID); err != nil {
		return dto.ChatRoomResponse{}, err
	}
	return dto.ChatRoomResponse{ID: roomID}, nil
}

func (s *chatServiceStub) SendMessage(ctx context.Context, actorID, roomID uint, payload dto.ChatSendRequest) (dto.ChatMessageResponse, error) {
	if err := s.Authorize(ctx, actorID, roomID); err != nil {
		return dto.ChatMessageResponse{}, err
	}
	if payload.Content == "" && payload.AttachmentURL == "" {
		return dto.ChatMessageResponse{}, service.ErrEmptyMessage
	}
	return dto.ChatMessageResponse{ID: 1, RoomID: roomID, SenderID: actorID, Content: payload.Content, MessageType: "text"}, nil
}

func (s *chatServiceStub) FetchMessages(ctx context.Context, actorID, roomID uint, page, pageSize int) ([]dto.ChatMessageResponse, dto.PaginationMeta, error) {
	s.fetchPage, s.fetchLimit = page, pageSize
	return []dto.ChatMessageResponse{{ID: 1, RoomID: roomID}}, dto.NewPaginationMeta(1, 50, 1), nil
}

func (s *chatServiceStub) UnreadCount(ctx context.Context, actorID, roomID uint) (int64, error) {
	return 3, nil
}

func (s *chatServiceStub) TotalUnread(ctx context.Context, actorID uint) (int64, error) {
	return 7, nil
}

func (s *chatServiceStub) Authorize(ctx context.Context, actorID, roomID uint) error {
	if roomID != 1 {
		return &service.Error{Kind: service.KindNotFound, Message: "chat room not found"}
	}
	if !s.members[actorID] {
		return service.ErrNotRoomMember
	}
	return nil
}

type streamerStub struct{}

func (streamerStub) Serve(ctx context.Context, conn service.ChatStreamConn, roomID, userID uint) {}

func newChatTestApp(svc service.ChatService, streamer handler.ChatStreamer) *fiber.App {
	app := fiber.New()
	handler.NewChatHandler(context.Background(), svc, streamer, testLogger()).Register(app.Group("/api/chat"), testGuards())
	return app
}

func TestChatStartDirectChat(t *testing.T) {
	app := newChatTestApp(newChatServiceStub(), streamerStub{})

	resp := doJSON(t, app, http.MethodPost, "/api/chat/start", 1, dto.ChatStartRequest{Username: "bob"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var first dto.ChatRoomResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &first))

	resp = doJSON(t, app, http.MethodPost, "/api/chat/start", 1, dto.ChatStartRequest{Username: "bob"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var second dto.ChatRoomResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &second))
	require.Equal(t, first.ID, second.ID)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/start", 1, dto.ChatStartRequest{Username: "ghost"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/start", 0, dto.ChatStartRequest{Username: "bob"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatMessagesAndUnread(t *testing.T) {
	svc := newChatServiceStub()
	app := newChatTestApp(svc, streamerStub{})

	resp := doJSON(t, app, http.MethodGet, "/api/chat/rooms/1/messages?page=2&limit=10", 1, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 2, svc.fetchPage)
	require.Equal(t, 10, svc.fetchLimit)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/rooms/1/messages", 1, dto.ChatSendRequest{Content: "hi"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/rooms/1/messages", 1, dto.ChatSendRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "message requires content or an attachment", decodeEnvelope(t, resp).Error)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/rooms/1/messages", 9, dto.ChatSendRequest{Content: "let me in"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/chat/rooms/1/unread", 1, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var unread dto.UnreadCountResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &unread))
	require.EqualValues(t, 3, unread.Count)
	require.NotNil(t, unread.RoomID)

	resp = doJSON(t, app, http.MethodGet, "/api/chat/unread", 1, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &unread))
	require.EqualValues(t, 7, unread.Count)
}

func TestChatStreamUpgradeChecks(t *testing.T) {
	upgradeRequest := func(path string, userID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		req.Header.Set("Sec-WebSocket-Version", "13")
		req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		if userID != "" {
			req.Header.Set(testUserHeader, userID)
		}
		return req
	}

	app := newChatTestApp(newChatServiceStub(), streamerStub{})

	resp := doJSON(t, app, http.MethodGet, "/api/chat/rooms/1/ws", 1, nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err := app.Test(upgradeRequest("/api/chat/rooms/1/ws", "9"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(upgradeRequest("/api/chat/rooms/5/ws", "1"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	disabled := newChatTestApp(newChatServiceStub(), nil)
	resp, err = disabled.Test(upgradeRequest("/api/chat/rooms/1/ws", "1"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
