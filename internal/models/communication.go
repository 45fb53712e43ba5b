package models

import (
	"fmt"
	"time"
)

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// ChatRoom groups members exchanging messages. Direct rooms carry a DirectKey
// built from both member ids so the pair can only ever have one room.
type ChatRoom struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	IsGroup   bool             `gorm:"not null;default:false" json:"is_group"`
	Name      string           `gorm:"size:128" json:"name"`
	DirectKey *string          `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `gorm:"index" json:"updated_at"`
	Members   []ChatRoomMember `gorm:"foreignKey:ChatRoomID" json:"members"`
	Messages  []Message        `gorm:"foreignKey:ChatRoomID" json:"messages"`
}

// HasMember reports whether userID is among the loaded members.
func (r ChatRoom) HasMember(userID uint) bool {
	for _, member := range r.Members {
		if member.UserID == userID {
			return true
		}
	}
	return false
}

// ChatRoomMember links a user to a chat room.
type ChatRoomMember struct {
	ChatRoomID uint      `gorm:"primaryKey;autoIncrement:false" json:"chat_room_id"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	JoinedAt   time.Time `gorm:"autoCreateTime" json:"joined_at"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
}

// Message is a single chat message inside a room.
type Message struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Content       string    `gorm:"type:text" json:"content"`
	ChatRoomID    uint      `gorm:"index;not null" json:"chat_room_id"`
	SenderID      uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID    *uint     `gorm:"index" json:"receiver_id"`
	MessageType   string    `gorm:"size:16;not null;default:text" json:"message_type"`
	AttachmentURL string    `gorm:"size:512" json:"attachment_url"`
	IsRead        bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	Sender        User      `gorm:"foreignKey:SenderID" json:"sender"`
}

// DirectRoomKey returns the canonical key for a direct room between two users.
func DirectRoomKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
