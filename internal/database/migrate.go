package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/models"
)

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Community{},
		&models.CommunityMember{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.ChatRoom{},
		&models.ChatRoomMember{},
		&models.Message{},
		&models.UserActivity{},
		&models.UploadRecord{},
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
