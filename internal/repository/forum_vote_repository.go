package repository

import (
	"errors"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/models"
)

type ForumVoteRepository interface {
	SetVote(threadID, userID uint, value int) (int, error)
	RemoveVote(threadID, userID uint) (int, error)
}

type forumVoteRepository struct {
	db *gorm.DB
}

func NewForumVoteRepository(db *gorm.DB) ForumVoteRepository {
	return &forumVoteRepository{db: db}
}

// SetVote records the user's vote and applies the difference to the thread
// rating. It returns the rating after the change.
func (r *forumVoteRepository) SetVote(threadID, userID uint, value int) (int, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var rating int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var thread models.ForumThread
		if err := tx.Select("id").First(&thread, threadID).Error; err != nil {
			return err
		}

		var vote models.ForumThreadVote
		result := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).First(&vote)
		delta := 0
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			vote = models.ForumThreadVote{ThreadID: threadID, UserID: userID, Value: value}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			delta = value
		case result.Error != nil:
			return result.Error
		case vote.Value != value:
			delta = value - vote.Value
			vote.Value = value
			if err := tx.Save(&vote).Error; err != nil {
				return err
			}
		}

		if delta != 0 {
			if err := tx.Model(&models.ForumThread{}).Where("id = ?", threadID).UpdateColumn("rating", gorm.Expr("rating + ?", delta)).Error; err != nil {
				return err
			}
		}

		var err error
		rating, err = currentRating(tx, threadID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

func (r *forumVoteRepository) RemoveVote(threadID, userID uint) (int, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var rating int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var thread models.ForumThread
		if err := tx.Select("id").First(&thread, threadID).Error; err != nil {
			return err
		}

		var vote models.ForumThreadVote
		err := tx.Where("thread_id = ? AND user_id = ?", threadID, userID).First(&vote).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			if err := tx.Delete(&vote).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.ForumThread{}).Where("id = ?", threadID).UpdateColumn("rating", gorm.Expr("rating + ?", -vote.Value)).Error; err != nil {
				return err
			}
		}

		rating, err = currentRating(tx, threadID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

func currentRating(tx *gorm.DB, threadID uint) (int, error) {
	var thread models.ForumThread
	if err := tx.Model(&models.ForumThread{}).Where("id = ?", threadID).Select("rating").First(&thread).Error; err != nil {
		return 0, err
	}
	return thread.Rating, nil
}
