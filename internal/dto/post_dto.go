package dto

import (
	"time"

	"github.com/noah-isme/forumly-api/internal/models"
)

// PostCreateRequest is the payload for submitting a post.
type PostCreateRequest struct {
	Title         string   `json:"title" validate:"required,min=1,max=300"`
	Content       string   `json:"content" validate:"omitempty,max=40000"`
	CommunityName string   `json:"community_name" validate:"required,min=3,max=32"`
	ImageURL      string   `json:"image_url" validate:"omitempty,url,max=512"`
	LinkURL       string   `json:"link_url" validate:"omitempty,url,max=512"`
	Tags          []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

// PostUpdateRequest carries partial post updates.
type PostUpdateRequest struct {
	Title    *string   `json:"title" validate:"omitempty,min=1,max=300"`
	Content  *string   `json:"content" validate:"omitempty,max=40000"`
	ImageURL *string   `json:"image_url" validate:"omitempty,url,max=512"`
	LinkURL  *string   `json:"link_url" validate:"omitempty,url,max=512"`
	Tags     *[]string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

// PostListQuery describes list filters.
type PostListQuery struct {
	Page      int    `query:"page"`
	PageSize  int    `query:"limit"`
	Community string `query:"community"`
	Author    string `query:"author"`
	Sort      string `query:"sort" validate:"omitempty,oneof=new top"`
}

// VoteRequest casts a vote. Direction is "up" or "down"; Type (+1/-1) is accepted as an alternative.
type VoteRequest struct {
	Direction string `json:"direction" validate:"omitempty,oneof=up down"`
	Type      int    `json:"type" validate:"omitempty,oneof=-1 1"`
}

// PostResponse is the serialized representation of a post with its tally.
type PostResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	CommunityName string            `json:"community_name"`
	ImageURL      string            `json:"image_url,omitempty"`
	LinkURL       string            `json:"link_url,omitempty"`
	Tags          []string          `json:"tags"`
	Author        UserSummary       `json:"author"`
	Score         int               `json:"score"`
	Upvotes       int               `json:"upvotes"`
	Downvotes     int               `json:"downvotes"`
	UserVote      int               `json:"user_vote"`
	CommentCount  int               `json:"comment_count"`
	Comments      []CommentResponse `json:"comments,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewPostResponse converts a post with preloaded votes into a DTO. viewerID of zero
// means an anonymous caller and yields user_vote 0.
func NewPostResponse(post models.Post, viewerID uint) PostResponse {
	response := PostResponse{
		ID:            post.ID,
		Title:         post.Title,
		Content:       post.Content,
		CommunityName: post.CommunityName,
		ImageURL:      post.ImageURL,
		LinkURL:       post.LinkURL,
		Tags:          post.Tags,
		Author:        NewUserSummary(post.Author),
		Score:         post.Score(),
		CommentCount:  len(post.Comments),
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
	if response.Tags == nil {
		response.Tags = []string{}
	}
	for _, vote := range post.Votes {
		switch vote.Type {
		case models.VoteUp:
			response.Upvotes++
		case models.VoteDown:
			response.Downvotes++
		}
		if viewerID != 0 && vote.UserID == viewerID {
			response.UserVote = vote.Type
		}
	}
	if len(post.Comments) > 0 {
		response.Comments = NewCommentResponseSlice(post.Comments)
	}
	return response
}

// NewPostResponseSlice converts posts into DTOs without embedding comments.
func NewPostResponseSlice(posts []models.Post, viewerID uint) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		item := NewPostResponse(post, viewerID)
		item.Comments = nil
		out = append(out, item)
	}
	return out
}

// CommentCreateRequest is the payload for replying to a post or comment.
type CommentCreateRequest struct {
	PostID   uint   `json:"post_id" validate:"required"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
	Content  string `json:"content" validate:"required,min=1,max=10000"`
}

// CommentResponse is the serialized representation of a comment.
type CommentResponse struct {
	ID        uint        `json:"id"`
	PostID    uint        `json:"post_id"`
	ParentID  *uint       `json:"parent_id"`
	Content   string      `json:"content"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewCommentResponse converts a comment model into a DTO.
func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		Author:    NewUserSummary(comment.Author),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

// NewCommentResponseSlice converts comments into DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentResponse(comment))
	}
	return out
}
