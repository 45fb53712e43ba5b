package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/models"
)

// ActivityFilter narrows karma ledger queries.
type ActivityFilter struct {
	UserID       uint
	Page         int
	PageSize     int
	ActivityType string
}

// ActivityRepository persists the append-only karma ledger.
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.UserActivity) error
	List(ctx context.Context, filter ActivityFilter) ([]models.UserActivity, int64, error)
	SumPoints(ctx context.Context, userID uint) (int64, error)
	Exists(ctx context.Context, userID uint, activityType string, entityID uint) (bool, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the activity ledger repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, entry *models.UserActivity) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.UserActivity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UserActivity{}).Where("user_id = ?", filter.UserID)

	if filter.ActivityType != "" {
		query = query.Where("activity_type = ?", filter.ActivityType)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := clampLimit(filter.PageSize, 20, 100)
	query = query.Offset(pageOffset(filter.Page, pageSize)).Limit(pageSize)

	var entries []models.UserActivity
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// SumPoints is the user's karma.
func (r *activityRepository) SumPoints(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.UserActivity{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *activityRepository) Exists(ctx context.Context, userID uint, activityType string, entityID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UserActivity{}).
		Where("user_id = ? AND activity_type = ? AND entity_id = ?", userID, activityType, entityID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
