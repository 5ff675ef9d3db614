package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoacademy-backend/internal/models"
)

// LeaderboardRow is a stats row joined with the owner's display name.
type LeaderboardRow struct {
	UserID           uint
	Name             string
	AvatarURL        string
	TotalPoints      int
	Level            int
	CoursesCompleted int
	CurrentStreak    int
}

type StatsRepository interface {
	GetByUser(userID uint) (*models.UserStats, error)
	GetByUserForUpdate(userID uint) (*models.UserStats, error)
	CreateIfAbsent(stats *models.UserStats) (bool, error)
	Save(stats *models.UserStats) error
	IncrementCoursesCompleted(userID uint) error
	Top(limit int) ([]LeaderboardRow, error)
	DeleteByUser(userID uint) error
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetByUser(userID uint) (*models.UserStats, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var stats models.UserStats
	if err := r.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetByUserForUpdate locks the stats row until the surrounding transaction
// ends. Dialects without row locks ignore the clause.
func (r *statsRepository) GetByUserForUpdate(userID uint) (*models.UserStats, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var stats models.UserStats
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateIfAbsent inserts the first stats row of a user and reports whether the
// insert happened. A concurrent first completion loses the race and gets false.
func (r *statsRepository) CreateIfAbsent(stats *models.UserStats) (bool, error) {
	if r == nil || r.db == nil {
		return false, gorm.ErrInvalidDB
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(stats)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *statsRepository) Save(stats *models.UserStats) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Save(stats).Error
}

func (r *statsRepository) IncrementCoursesCompleted(userID uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	result := r.db.Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		UpdateColumn("courses_completed", gorm.Expr("courses_completed + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Top returns the highest scoring users. Ties are broken by user id so the
// order is stable between calls.
func (r *statsRepository) Top(limit int) ([]LeaderboardRow, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var rows []LeaderboardRow
	err := r.db.Model(&models.UserStats{}).
		Select("user_stats.user_id, COALESCE(users.name, '') AS name, COALESCE(users.avatar_url, '') AS avatar_url, user_stats.total_points, user_stats.level, user_stats.courses_completed, user_stats.current_streak").
		Joins("LEFT JOIN users ON users.id = user_stats.user_id").
		Order("user_stats.total_points DESC").
		Order("user_stats.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) DeleteByUser(userID uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Where("user_id = ?", userID).Delete(&models.UserStats{}).Error
}
