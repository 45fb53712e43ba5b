package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/forumly-api/internal/models"
)

// CommunityRepository persists communities and their memberships.
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByName(ctx context.Context, name string) (models.Community, error)
	List(ctx context.Context, page, pageSize int) ([]models.Community, int64, error)
	Join(ctx context.Context, communityID, userID uint) (bool, error)
	Leave(ctx context.Context, communityID, userID uint) (bool, error)
	IsMember(ctx context.Context, communityID, userID uint) (bool, error)
	Search(ctx context.Context, term string, limit int) ([]models.Community, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository constructs a GORM-backed community repository.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

// Create stores the community and enrols its creator as the first member.
func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community.MemberCount = 1
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		member := models.CommunityMember{CommunityID: community.ID, UserID: community.CreatorID}
		return tx.Create(&member).Error
	})
}

func (r *communityRepository) GetByName(ctx context.Context, name string) (models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&community).Error; err != nil {
		return models.Community{}, err
	}
	return community, nil
}

func (r *communityRepository) List(ctx context.Context, page, pageSize int) ([]models.Community, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Community{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize = clampLimit(pageSize, 20, 100)
	var communities []models.Community
	if err := query.
		Order("member_count DESC").
		Order("name ASC").
		Offset(pageOffset(page, pageSize)).
		Limit(pageSize).
		Find(&communities).Error; err != nil {
		return nil, 0, err
	}
	return communities, total, nil
}

// Join adds the membership and bumps member_count. It reports false when the
// user was already a member.
func (r *communityRepository) Join(ctx context.Context, communityID, userID uint) (bool, error) {
	joined := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.CommunityMember{CommunityID: communityID, UserID: userID}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		joined = true
		return tx.Model(&models.Community{}).
			Where("id = ?", communityID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
	return joined, err
}

// Leave removes the membership and decrements member_count. It reports false
// when the user was not a member.
func (r *communityRepository) Leave(ctx context.Context, communityID, userID uint) (bool, error) {
	left := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("community_id = ? AND user_id = ?", communityID, userID).Delete(&models.CommunityMember{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		left = true
		return tx.Model(&models.Community{}).
			Where("id = ? AND member_count > 0", communityID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
	return left, err
}

func (r *communityRepository) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *communityRepository) Search(ctx context.Context, term string, limit int) ([]models.Community, error) {
	pattern := likePattern(term)
	var communities []models.Community
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?"+likeEscape+" OR LOWER(description) LIKE ?"+likeEscape, pattern, pattern).
		Order("member_count DESC").
		Order("name ASC").
		Limit(clampLimit(limit, 20, 50)).
		Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}
