package dto

import (
	"time"

	"github.com/noah-isme/forumly-api/internal/models"
)

// CommunityCreateRequest is the payload for creating a community.
type CommunityCreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=32"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	BannerImage string `json:"banner_image" validate:"omitempty,url,max=512"`
	Icon        string `json:"icon" validate:"omitempty,url,max=512"`
}

// CommunityResponse is the serialized representation of a community.
type CommunityResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int64     `json:"member_count"`
	OnlineCount int64     `json:"online_count"`
	BannerImage string    `json:"banner_image,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatorID   uint      `json:"creator_id"`
	IsMember    bool      `json:"is_member"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCommunityResponse converts a community model into a DTO.
func NewCommunityResponse(community models.Community) CommunityResponse {
	return CommunityResponse{
		ID:          community.ID,
		Name:        community.Name,
		Description: community.Description,
		MemberCount: community.MemberCount,
		OnlineCount: community.OnlineCount,
		BannerImage: community.BannerImage,
		Icon:        community.Icon,
		CreatorID:   community.CreatorID,
		CreatedAt:   community.CreatedAt,
	}
}

// NewCommunityResponseSlice converts communities into DTOs.
func NewCommunityResponseSlice(items []models.Community) []CommunityResponse {
	out := make([]CommunityResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCommunityResponse(item))
	}
	return out
}
