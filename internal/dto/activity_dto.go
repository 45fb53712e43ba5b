package dto

import (
	"time"

	"github.com/noah-isme/forumly-api/internal/models"
)

// ActivityListQuery filters a user's karma ledger.
type ActivityListQuery struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Type     string `query:"type" validate:"omitempty,oneof=post_created comment_created vote_cast vote_received community_joined"`
}

// ActivityResponse describes a single ledger entry.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActivityType string                 `json:"activity_type"`
	Description  string                 `json:"description"`
	Points       int                    `json:"points"`
	EntityType   string                 `json:"entity_type,omitempty"`
	EntityID     *uint                  `json:"entity_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityFeedResponse is a page of ledger entries plus the running karma.
type ActivityFeedResponse struct {
	Karma      int64              `json:"karma"`
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a ledger entry into a DTO.
func NewActivityResponse(activity models.UserActivity) ActivityResponse {
	response := ActivityResponse{
		ID:           activity.ID,
		ActivityType: activity.ActivityType,
		Description:  activity.Description,
		Points:       activity.Points,
		EntityType:   activity.EntityType,
		EntityID:     activity.EntityID,
		CreatedAt:    activity.CreatedAt,
	}
	if len(activity.Metadata) > 0 {
		response.Metadata = map[string]interface{}(activity.Metadata)
	}
	return response
}

// NewActivityResponseSlice converts ledger entries into DTOs.
func NewActivityResponseSlice(items []models.UserActivity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewActivityResponse(item))
	}
	return out
}
