package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/forumly-api/internal/models"
)

// LedgerFunc builds karma ledger entries from the vote value that existed before
// the change (0 when there was none). Entries are written in the same transaction.
type LedgerFunc func(previous int) []models.UserActivity

// VoteRepository persists votes. At most one row exists per (user, post).
type VoteRepository interface {
	Cast(ctx context.Context, userID, postID uint, voteType int, ledger LedgerFunc) (int, error)
	Remove(ctx context.Context, userID, postID uint, ledger LedgerFunc) (int, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Vote, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository constructs a GORM-backed vote repository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Cast upserts the caller's vote and returns the previous vote type. It returns
// gorm.ErrRecordNotFound when the post no longer exists.
func (r *voteRepository) Cast(ctx context.Context, userID, postID uint, voteType int, ledger LedgerFunc) (int, error) {
	previous := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		current, err := currentVote(tx, userID, postID)
		if err != nil {
			return err
		}
		previous = current

		vote := models.Vote{UserID: userID, PostID: postID, Type: voteType}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"type":       voteType,
				"updated_at": time.Now(),
			}),
		}).Create(&vote).Error; err != nil {
			return err
		}

		return writeLedger(tx, ledger, previous)
	})
	if err != nil {
		return 0, err
	}
	return previous, nil
}

// Remove deletes the caller's vote, if any, and returns the removed vote type.
func (r *voteRepository) Remove(ctx context.Context, userID, postID uint, ledger LedgerFunc) (int, error) {
	previous := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}
		current, err := currentVote(tx, userID, postID)
		if err != nil {
			return err
		}
		previous = current
		if current == 0 {
			return nil
		}

		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}

		return writeLedger(tx, ledger, previous)
	})
	if err != nil {
		return 0, err
	}
	return previous, nil
}

func (r *voteRepository) ListByPost(ctx context.Context, postID uint) ([]models.Vote, error) {
	var votes []models.Vote
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

// lockPost serialises vote changes on a post so concurrent requests from the
// same user read the previous vote one at a time. SQLite ignores the clause and
// relies on its single writer instead.
func lockPost(tx *gorm.DB, postID uint) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&models.Post{}, postID).Error
}

func currentVote(tx *gorm.DB, userID, postID uint) (int, error) {
	var existing models.Vote
	err := tx.Where("user_id = ? AND post_id = ?", userID, postID).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return existing.Type, nil
}

func writeLedger(tx *gorm.DB, ledger LedgerFunc, previous int) error {
	if ledger == nil {
		return nil
	}
	entries := ledger(previous)
	if len(entries) == 0 {
		return nil
	}
	return tx.Create(&entries).Error
}
