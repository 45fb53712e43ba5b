package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/forumly-api/internal/models"
)

// Post list orderings.
const (
	PostSortNew = "new"
	PostSortTop = "top"
)

// PostFilter narrows post listings.
type PostFilter struct {
	Page          int
	PageSize      int
	CommunityName string
	AuthorID      *uint
	Sort          string
}

// PostRepository persists posts and their derived relations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (models.Post, error)
	GetWithDetails(ctx context.Context, id uint) (models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Exists(ctx context.Context, id uint) (bool, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	Search(ctx context.Context, term string, limit int) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Votes").
		First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) GetWithDetails(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Votes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.Author").
		First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})

	if filter.CommunityName != "" {
		query = query.Where("community_name = ?", filter.CommunityName)
	}
	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := clampLimit(filter.PageSize, 20, 100)
	query = query.Offset(pageOffset(filter.Page, pageSize)).Limit(pageSize)

	if filter.Sort == PostSortTop {
		query = query.Order("(SELECT COALESCE(SUM(votes.type), 0) FROM votes WHERE votes.post_id = posts.id) DESC")
	}

	var posts []models.Post
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Preload("Author").
		Preload("Votes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "post_id")
		}).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error
}

// Delete removes the post along with its votes and comments.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postRepository) Search(ctx context.Context, term string, limit int) ([]models.Post, error) {
	pattern := likePattern(term)
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ?"+likeEscape+" OR LOWER(content) LIKE ?"+likeEscape+
			" OR LOWER(community_name) LIKE ?"+likeEscape+" OR LOWER(tags) LIKE ?"+likeEscape,
			pattern, pattern, pattern, pattern).
		Order("created_at DESC").
		Order("id DESC").
		Limit(clampLimit(limit, 20, 50)).
		Preload("Author").
		Preload("Votes").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
