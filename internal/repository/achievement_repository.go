package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoacademy-backend/internal/models"
)

type AchievementRepository interface {
	CreateIfAbsent(achievement *models.Achievement) (bool, error)
	ListByUser(userID uint) ([]models.Achievement, error)
	Count() (int64, error)
	DeleteByUser(userID uint) error
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

// CreateIfAbsent inserts the achievement unless the user already holds one
// with the same key. It reports whether a row was inserted.
func (r *achievementRepository) CreateIfAbsent(achievement *models.Achievement) (bool, error) {
	if r == nil || r.db == nil {
		return false, gorm.ErrInvalidDB
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoNothing: true,
	}).Create(achievement)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *achievementRepository) ListByUser(userID uint) ([]models.Achievement, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var achievements []models.Achievement
	err := r.db.Where("user_id = ?", userID).
		Order("earned_at DESC").
		Order("id DESC").
		Find(&achievements).Error
	return achievements, err
}

func (r *achievementRepository) Count() (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.Achievement{}).Count(&count).Error
	return count, err
}

func (r *achievementRepository) DeleteByUser(userID uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Where("user_id = ?", userID).Delete(&models.Achievement{}).Error
}
