package dto

import (
	"time"

	"github.com/noah-isme/forumly-api/internal/models"
)

// SignupRequest is the payload for creating a password account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ExternalLoginRequest carries the identity token issued by Google.
type ExternalLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// UpdateProfileRequest updates the caller's public profile. Nil fields are left untouched.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=64"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url,max=512"`
}

// ChangePasswordRequest rotates the caller's password. CurrentPassword may be
// omitted by Google accounts that never set one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"omitempty,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// PresenceRequest toggles the caller's online flag.
type PresenceRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// AuthResponse is returned after a successful login.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      ProfileResponse `json:"user"`
}

// UserSummary is the compact user representation embedded in other payloads.
type UserSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsOnline    bool   `json:"is_online"`
}

// ProfileResponse is the public profile of a user.
type ProfileResponse struct {
	ID           uint       `json:"id"`
	Email        string     `json:"email,omitempty"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Bio          string     `json:"bio"`
	AvatarURL    string     `json:"avatar_url"`
	IsOnline     bool       `json:"is_online"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	Karma        int64      `json:"karma"`
	PostCount    int64      `json:"post_count"`
	CommentCount int64      `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewUserSummary converts a user model into its compact representation.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		IsOnline:    user.IsOnline,
	}
}

// NewProfileResponse converts a user model into a public profile without counters.
func NewProfileResponse(user models.User) ProfileResponse {
	return ProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		AvatarURL:   user.AvatarURL,
		IsOnline:    user.IsOnline,
		LastSeenAt:  user.LastSeenAt,
		CreatedAt:   user.CreatedAt,
	}
}

// NewPrivateProfileResponse includes the email and is only returned to the account owner.
func NewPrivateProfileResponse(user models.User) ProfileResponse {
	profile := NewProfileResponse(user)
	profile.Email = user.Email
	return profile
}
