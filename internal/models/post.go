package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Post is a submission to a community.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:300;not null" json:"title"`
	Content       string    `gorm:"type:text" json:"content"`
	CommunityName string    `gorm:"size:64;index;not null" json:"community_name"`
	ImageURL      string    `gorm:"size:512" json:"image_url"`
	LinkURL       string    `gorm:"size:512" json:"link_url"`
	TagsRaw       string    `gorm:"column:tags;type:text" json:"-"`
	AuthorID      uint      `gorm:"index;not null" json:"author_id"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Tags          []string  `gorm:"-" json:"tags"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"author"`
	Comments      []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	Votes         []Vote    `gorm:"foreignKey:PostID" json:"votes,omitempty"`
}

// BeforeSave normalises tag data before persisting.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.TagsRaw = encodeTags(p.Tags)
	return nil
}

// AfterFind hydrates tag list after retrieval.
func (p *Post) AfterFind(tx *gorm.DB) error {
	p.Tags = decodeTags(p.TagsRaw)
	return nil
}

// Score is the sum of the post's vote types. Votes must be loaded.
func (p Post) Score() int {
	score := 0
	for _, vote := range p.Votes {
		score += vote.Type
	}
	return score
}

// Comment is a reply to a post, optionally threaded under another comment.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
}

// Vote types.
const (
	VoteUp   = 1
	VoteDown = -1
)

// Vote records a single user's up or down vote on a post.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      int       `gorm:"not null" json:"type"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidVoteType reports whether value is an allowed vote type.
func ValidVoteType(value int) bool {
	return value == VoteUp || value == VoteDown
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(strings.ToLower(tag))
		trimmed = strings.ReplaceAll(trimmed, "|", "")
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeTags(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		tags = append(tags, trimmed)
	}
	return tags
}
