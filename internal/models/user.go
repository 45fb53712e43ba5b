package models

import "time"

// User is a registered account. PasswordHash is never serialised. Accounts
// created through Google carry a random hash and PasswordSet false until the
// owner chooses a password.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username     string     `gorm:"size:32;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	GoogleID     *string    `gorm:"size:128;uniqueIndex" json:"-"`
	PasswordSet  bool       `gorm:"not null;default:false" json:"-"`
	DisplayName  string     `gorm:"size:64" json:"display_name"`
	Bio          string     `gorm:"type:text" json:"bio"`
	AvatarURL    string     `gorm:"size:512" json:"avatar_url"`
	IsOnline     bool       `gorm:"not null;default:false" json:"is_online"`
	LastSeenAt   *time.Time `json:"last_seen_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasExternalIdentity reports whether the account is linked to a Google identity.
func (u User) HasExternalIdentity() bool {
	return u.GoogleID != nil && *u.GoogleID != ""
}
