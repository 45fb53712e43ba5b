package dto

import (
	"time"

	"github.com/noah-isme/forumly-api/internal/models"
)

// ChatStartRequest opens (or reuses) a direct room with another user.
type ChatStartRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
}

// ChatSendRequest represents the payload sent from clients to post a chat message.
type ChatSendRequest struct {
	Content       string `json:"content" validate:"omitempty,max=4000"`
	MessageType   string `json:"message_type" validate:"omitempty,oneof=text image file"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url,max=512"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID            uint        `json:"id"`
	RoomID        uint        `json:"room_id"`
	SenderID      uint        `json:"sender_id"`
	ReceiverID    *uint       `json:"receiver_id,omitempty"`
	Content       string      `json:"content"`
	MessageType   string      `json:"message_type"`
	AttachmentURL string      `json:"attachment_url,omitempty"`
	IsRead        bool        `json:"is_read"`
	Sender        UserSummary `json:"sender"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.Message) ChatMessageResponse {
	return ChatMessageResponse{
		ID:            message.ID,
		RoomID:        message.ChatRoomID,
		SenderID:      message.SenderID,
		ReceiverID:    message.ReceiverID,
		Content:       message.Content,
		MessageType:   message.MessageType,
		AttachmentURL: message.AttachmentURL,
		IsRead:        message.IsRead,
		Sender:        NewUserSummary(message.Sender),
		CreatedAt:     message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.Message) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// ChatRoomResponse describes a room together with its members.
type ChatRoomResponse struct {
	ID          uint                  `json:"id"`
	IsGroup     bool                  `json:"is_group"`
	Name        string                `json:"name,omitempty"`
	Members     []UserSummary         `json:"members"`
	LastMessage *ChatMessageResponse  `json:"last_message,omitempty"`
	Messages    []ChatMessageResponse `json:"messages,omitempty"`
	UnreadCount int64                 `json:"unread_count"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewChatRoomResponse converts a room model into a DTO. Preloaded messages are
// embedded and the newest one is exposed as last_message.
func NewChatRoomResponse(room models.ChatRoom) ChatRoomResponse {
	response := ChatRoomResponse{
		ID:        room.ID,
		IsGroup:   room.IsGroup,
		Name:      room.Name,
		Members:   make([]UserSummary, 0, len(room.Members)),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
	for _, member := range room.Members {
		response.Members = append(response.Members, NewUserSummary(member.User))
	}
	if len(room.Messages) > 0 {
		response.Messages = NewChatMessageResponseSlice(room.Messages)
		last := response.Messages[len(response.Messages)-1]
		response.LastMessage = &last
	}
	return response
}

// UnreadCountResponse reports unread messages for a room or overall.
type UnreadCountResponse struct {
	RoomID *uint `json:"room_id,omitempty"`
	Count  int64 `json:"count"`
}
