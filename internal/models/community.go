package models

import "time"

// Community is a named topic that posts belong to.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	MemberCount int64     `gorm:"not null;default:0" json:"member_count"`
	OnlineCount int64     `gorm:"not null;default:0" json:"online_count"`
	BannerImage string    `gorm:"size:512" json:"banner_image"`
	Icon        string    `gorm:"size:512" json:"icon"`
	CreatorID   uint      `gorm:"index" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommunityMember links a user to a community they joined.
type CommunityMember struct {
	CommunityID uint      `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	UserID      uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}
