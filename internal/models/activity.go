package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity types recorded in the karma ledger.
const (
	ActivityPostCreated     = "post_created"
	ActivityCommentCreated  = "comment_created"
	ActivityVoteCast        = "vote_cast"
	ActivityVoteReceived    = "vote_received"
	ActivityCommunityJoined = "community_joined"
)

// UserActivity is an append-only ledger entry. A user's karma is the sum of
// Points across their entries.
type UserActivity struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	UserID       uint              `gorm:"index:idx_activity_user_type,priority:1;not null" json:"user_id"`
	ActivityType string            `gorm:"size:32;index:idx_activity_user_type,priority:2;not null" json:"activity_type"`
	Description  string            `gorm:"size:255" json:"description"`
	Points       int               `gorm:"not null;default:0" json:"points"`
	EntityType   string            `gorm:"size:32" json:"entity_type"`
	EntityID     *uint             `json:"entity_id"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}
