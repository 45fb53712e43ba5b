package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/service"
	"github.com/noah-isme/forumly-api/internal/utils"
)

const localStreamRoomID = "stream_room_id"

// ChatStreamer pushes live room messages to an upgraded connection.
type ChatStreamer interface {
	Serve(ctx context.Context, conn service.ChatStreamConn, roomID, userID uint)
}

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service  service.ChatService
	streamer ChatStreamer
	streams  context.Context
	logger   zerolog.Logger
}

// NewChatHandler creates a chat handler. Streams end when streams is cancelled;
// a nil streamer disables the websocket endpoint.
func NewChatHandler(streams context.Context, service service.ChatService, streamer ChatStreamer, logger zerolog.Logger) *ChatHandler {
	if streams == nil {
		streams = context.Background()
	}
	return &ChatHandler{
		service:  service,
		streamer: streamer,
		streams:  streams,
		logger:   logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes. Every route requires authentication.
func (h *ChatHandler) Register(router fiber.Router, guards Guards) {
	router.Use(guards.required())

	router.Post("/start", h.start)
	router.Get("/rooms", h.listRooms)
	router.Get("/unread", h.totalUnread)
	router.Get("/rooms/:id", h.getRoom)
	router.Get("/rooms/:id/messages", h.listMessages)
	router.Post("/rooms/:id/messages", h.sendMessage)
	router.Get("/rooms/:id/unread", h.roomUnread)
	router.Get("/rooms/:id/ws", h.upgrade, websocket.New(h.stream))
}

func (h *ChatHandler) start(c *fiber.Ctx) error {
	var payload dto.ChatStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	room, created, err := h.service.StartDirectChat(withRequestContext(c), userIDFromContext(c), payload.Username)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if created {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "chat room created", room)
	}
	return utils.SendSuccess(c, "chat room retrieved", room)
}

func (h *ChatHandler) listRooms(c *fiber.Ctx) error {
	rooms, err := h.service.ListRooms(withRequestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "chat rooms retrieved", rooms)
}

func (h *ChatHandler) getRoom(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	room, err := h.service.GetRoom(withRequestContext(c), userIDFromContext(c), roomID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "chat room retrieved", room)
}

func (h *ChatHandler) listMessages(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	messages, meta, err := h.service.FetchMessages(withRequestContext(c), userIDFromContext(c), roomID, page, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, messages, "messages retrieved", meta)
}

func (h *ChatHandler) sendMessage(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ChatSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request payload")
	}

	message, err := h.service.SendMessage(withRequestContext(c), userIDFromContext(c), roomID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *ChatHandler) roomUnread(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	count, err := h.service.UnreadCount(withRequestContext(c), userIDFromContext(c), roomID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "unread count retrieved", dto.UnreadCountResponse{RoomID: &roomID, Count: count})
}

func (h *ChatHandler) totalUnread(c *fiber.Ctx) error {
	count, err := h.service.TotalUnread(withRequestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "unread count retrieved", dto.UnreadCountResponse{Count: count})
}

// upgrade authorizes the caller for the room before switching protocols.
func (h *ChatHandler) upgrade(c *fiber.Ctx) error {
	if h.streamer == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "live chat is not available")
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
	}

	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.service.Authorize(withRequestContext(c), userIDFromContext(c), roomID); err != nil {
		return respondError(c, h.logger, err)
	}

	c.Locals(localStreamRoomID, roomID)
	return c.Next()
}

func (h *ChatHandler) stream(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	roomID, _ := conn.Locals(localStreamRoomID).(uint)

	h.logger.Info().Uint("user_id", userID).Uint("room_id", roomID).Msg("chat stream connected")
	h.streamer.Serve(h.streams, conn, roomID, userID)
	h.logger.Info().Uint("user_id", userID).Uint("room_id", roomID).Msg("chat stream disconnected")
}
