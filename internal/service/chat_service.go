package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/repository"
)

// ChatService manages direct rooms and message delivery.
type ChatService interface {
	StartDirectChat(ctx context.Context, actorID uint, username string) (dto.ChatRoomResponse, bool, error)
	ListRooms(ctx context.Context, actorID uint) ([]dto.ChatRoomResponse, error)
	GetRoom(ctx context.Context, actorID, roomID uint) (dto.ChatRoomResponse, error)
	SendMessage(ctx context.Context, actorID, roomID uint, payload dto.ChatSendRequest) (dto.ChatMessageResponse, error)
	FetchMessages(ctx context.Context, actorID, roomID uint, page, pageSize int) ([]dto.ChatMessageResponse, dto.PaginationMeta, error)
	UnreadCount(ctx context.Context, actorID, roomID uint) (int64, error)
	TotalUnread(ctx context.Context, actorID uint) (int64, error)
	Authorize(ctx context.Context, actorID, roomID uint) error
}

type chatService struct {
	repo      repository.ChatRepository
	users     repository.UserRepository
	publisher ChatPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewChatService creates the chat service. publisher may be nil.
func NewChatService(repo repository.ChatRepository, users repository.UserRepository, publisher ChatPublisher, validate *validator.Validate, logger zerolog.Logger) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &chatService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		validator: validate,
		sanitizer: sanitizer,
		logger:    logger.With().Str("component", "chat_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/forumly-api/internal/service/chat"),
	}
}

// StartDirectChat finds or creates the direct room between the actor and username.
// The boolean reports whether a room was created.
func (s *chatService) StartDirectChat(ctx context.Context, actorID uint, username string) (dto.ChatRoomResponse, bool, error) {
	payload := dto.ChatStartRequest{Username: strings.TrimSpace(username)}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatRoomResponse{}, false, err
	}

	target, err := s.users.GetByUsername(ctx, payload.Username)
	if err != nil {
		return dto.ChatRoomResponse{}, false, notFoundOr("user", err)
	}
	if target.ID == actorID {
		return dto.ChatRoomResponse{}, false, ErrSelfChat
	}

	ctx, span := s.tracer.Start(ctx, "chat.start_direct", trace.WithAttributes(
		attribute.Int("chat.user_a", int(actorID)),
		attribute.Int("chat.user_b", int(target.ID)),
	))
	defer span.End()

	room, created, err := s.repo.FindOrCreateDirect(ctx, actorID, target.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "find or create failed")
		return dto.ChatRoomResponse{}, false, internal("start chat", err)
	}
	if created {
		s.logger.Info().Uint("room_id", room.ID).Uint("user_id", actorID).Uint("target_id", target.ID).Msg("direct chat created")
	}

	response, err := s.decorate(ctx, actorID, room)
	if err != nil {
		return dto.ChatRoomResponse{}, false, err
	}
	return response, created, nil
}

func (s *chatService) ListRooms(ctx context.Context, actorID uint) ([]dto.ChatRoomResponse, error) {
	rooms, err := s.repo.ListRoomsForUser(ctx, actorID)
	if err != nil {
		return nil, internal("list rooms", err)
	}

	out := make([]dto.ChatRoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response, err := s.decorate(ctx, actorID, room)
		if err != nil {
			return nil, err
		}
		out = append(out, response)
	}
	return out, nil
}

func (s *chatService) GetRoom(ctx context.Context, actorID, roomID uint) (dto.ChatRoomResponse, error) {
	room, err := s.loadRoomFor(ctx, actorID, roomID)
	if err != nil {
		return dto.ChatRoomResponse{}, err
	}
	return s.decorate(ctx, actorID, room)
}

func (s *chatService) SendMessage(ctx context.Context, actorID, roomID uint, payload dto.ChatSendRequest) (dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	room, err := s.loadRoomFor(ctx, actorID, roomID)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	attachment := strings.TrimSpace(payload.AttachmentURL)
	if content == "" && attachment == "" {
		return dto.ChatMessageResponse{}, ErrEmptyMessage
	}

	messageType := payload.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
		if attachment != "" && content == "" {
			messageType = models.MessageTypeImage
		}
	}

	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.Int("chat.room_id", int(roomID)),
		attribute.Int("chat.sender_id", int(actorID)),
		attribute.String("chat.type", messageType),
	))
	defer span.End()

	message := models.Message{
		Content:       content,
		ChatRoomID:    room.ID,
		SenderID:      actorID,
		MessageType:   messageType,
		AttachmentURL: attachment,
	}
	if !room.IsGroup {
		for _, member := range room.Members {
			if member.UserID != actorID {
				receiver := member.UserID
				message.ReceiverID = &receiver
				break
			}
		}
	}

	if err := s.repo.SaveMessage(ctx, &message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return dto.ChatMessageResponse{}, internal("send message", err)
	}

	for _, member := range room.Members {
		if member.UserID == actorID {
			message.Sender = member.User
			break
		}
	}

	response := dto.NewChatMessageResponse(message)
	if s.publisher != nil {
		s.publisher.Publish(ctx, response)
	}

	return response, nil
}

// FetchMessages returns a page of the room's history in chronological order and
// marks every message from the other members as read.
func (s *chatService) FetchMessages(ctx context.Context, actorID, roomID uint, page, pageSize int) ([]dto.ChatMessageResponse, dto.PaginationMeta, error) {
	if _, err := s.loadRoomFor(ctx, actorID, roomID); err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	page = maxInt(page, 1)
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	if _, err := s.repo.MarkRead(ctx, roomID, actorID); err != nil {
		return nil, dto.PaginationMeta{}, internal("mark messages read", err)
	}

	messages, total, err := s.repo.ListByRoom(ctx, roomID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, dto.PaginationMeta{}, internal("list messages", err)
	}

	return dto.NewChatMessageResponseSlice(messages), dto.NewPaginationMeta(page, pageSize, total), nil
}

func (s *chatService) UnreadCount(ctx context.Context, actorID, roomID uint) (int64, error) {
	if _, err := s.loadRoomFor(ctx, actorID, roomID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, roomID, actorID)
	if err != nil {
		return 0, internal("count unread", err)
	}
	return count, nil
}

func (s *chatService) TotalUnread(ctx context.Context, actorID uint) (int64, error) {
	count, err := s.repo.CountUnreadTotal(ctx, actorID)
	if err != nil {
		return 0, internal("count unread", err)
	}
	return count, nil
}

// Authorize checks that the actor may stream the room.
func (s *chatService) Authorize(ctx context.Context, actorID, roomID uint) error {
	_, err := s.loadRoomFor(ctx, actorID, roomID)
	return err
}

func (s *chatService) loadRoomFor(ctx context.Context, actorID, roomID uint) (models.ChatRoom, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ChatRoom{}, notFound("chat room")
		}
		return models.ChatRoom{}, internal("load chat room", err)
	}
	if !room.HasMember(actorID) {
		return models.ChatRoom{}, ErrNotRoomMember
	}
	return room, nil
}

func (s *chatService) decorate(ctx context.Context, actorID uint, room models.ChatRoom) (dto.ChatRoomResponse, error) {
	response := dto.NewChatRoomResponse(room)

	latest, err := s.repo.LatestByRoom(ctx, room.ID)
	switch {
	case err == nil:
		last := dto.NewChatMessageResponse(latest)
		response.LastMessage = &last
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.ChatRoomResponse{}, internal("load last message", err)
	}

	unread, err := s.repo.CountUnread(ctx, room.ID, actorID)
	if err != nil {
		return dto.ChatRoomResponse{}, internal("count unread", err)
	}
	response.UnreadCount = unread
	return response, nil
}
