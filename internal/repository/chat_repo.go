package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/forumly-api/internal/models"
)

// ChatRepository persists chat rooms, memberships and messages.
type ChatRepository interface {
	FindOrCreateDirect(ctx context.Context, userA, userB uint) (models.ChatRoom, bool, error)
	GetRoom(ctx context.Context, roomID uint) (models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	IsMember(ctx context.Context, roomID, userID uint) (bool, error)
	SaveMessage(ctx context.Context, message *models.Message) error
	ListByRoom(ctx context.Context, roomID uint, limit, offset int) ([]models.Message, int64, error)
	LatestByRoom(ctx context.Context, roomID uint) (models.Message, error)
	MarkRead(ctx context.Context, roomID, readerID uint) (int64, error)
	CountUnread(ctx context.Context, roomID, userID uint) (int64, error)
	CountUnreadTotal(ctx context.Context, userID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindOrCreateDirect returns the single direct room shared by the two users,
// creating it when absent. The boolean reports whether a room was created.
func (r *chatRepository) FindOrCreateDirect(ctx context.Context, userA, userB uint) (models.ChatRoom, bool, error) {
	key := models.DirectRoomKey(userA, userB)
	var (
		roomID  uint
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.ChatRoom
		err := tx.Where("direct_key = ?", key).Take(&room).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			room = models.ChatRoom{IsGroup: false, DirectKey: &key}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "direct_key"}},
				DoNothing: true,
			}).Omit(clause.Associations).Create(&room)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// Lost the race to a concurrent creator.
				if err := tx.Where("direct_key = ?", key).Take(&room).Error; err != nil {
					return err
				}
			} else {
				created = true
			}
		case err != nil:
			return err
		}
		roomID = room.ID

		members := []models.ChatRoomMember{
			{ChatRoomID: room.ID, UserID: userA},
			{ChatRoomID: room.ID, UserID: userB},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&members).Error; err != nil {
			return err
		}

		// Direct rooms hold exactly the two participants.
		return tx.Where("chat_room_id = ? AND user_id NOT IN ?", room.ID, []uint{userA, userB}).
			Delete(&models.ChatRoomMember{}).Error
	})
	if err != nil {
		return models.ChatRoom{}, false, err
	}

	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return models.ChatRoom{}, false, err
	}
	return room, created, nil
}

func (r *chatRepository) GetRoom(ctx context.Context, roomID uint) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_id ASC")
		}).
		Preload("Members.User").
		First(&room, roomID).Error; err != nil {
		return models.ChatRoom{}, err
	}
	return room, nil
}

// ListRoomsForUser returns the user's rooms, most recently active first.
func (r *chatRepository) ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.ChatRoomMember{}).Select("chat_room_id").Where("user_id = ?", userID)).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_id ASC")
		}).
		Preload("Members.User").
		Order("updated_at DESC").
		Order("id DESC").
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRepository) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveMessage stores the message and touches the room's updated_at.
func (r *chatRepository) SaveMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if message.CreatedAt.IsZero() {
			message.CreatedAt = time.Now()
		}
		if err := tx.Omit(clause.Associations).Create(message).Error; err != nil {
			return err
		}

		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", message.ChatRoomID).
			UpdateColumn("updated_at", message.CreatedAt).
			Error
	})
}

// ListByRoom returns a page of messages in chronological order. Pages are
// counted from the newest message backwards.
func (r *chatRepository) ListByRoom(ctx context.Context, roomID uint, limit, offset int) ([]models.Message, int64, error) {
	limit = clampLimit(limit, 50, 100)
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Message{}).Where("chat_room_id = ?", roomID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	if err := query.
		Preload("Sender").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, total, nil
}

func (r *chatRepository) LatestByRoom(ctx context.Context, roomID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// MarkRead flags every unread message in the room not sent by readerID.
func (r *chatRepository) MarkRead(ctx context.Context, roomID, readerID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		UpdateColumn("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *chatRepository) CountUnread(ctx context.Context, roomID, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, userID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *chatRepository) CountUnreadTotal(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id IN (?)", r.db.Model(&models.ChatRoomMember{}).Select("chat_room_id").Where("user_id = ?", userID)).
		Where("sender_id <> ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
