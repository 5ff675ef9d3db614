package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoacademy-backend/internal/models"
)

type ProgressRepository interface {
	Upsert(progress *models.UserProgress) error
	Get(userID, courseID, lessonID uint) (*models.UserProgress, error)
	CountCompleted(userID, courseID uint) (int64, error)
	CompletedLessonIDs(userID, courseID uint) ([]uint, error)
	CompletedCountsByCourse(userID uint, courseIDs []uint) (map[uint]int, error)
	CountCompletedSince(since time.Time) (int64, error)
	CountActiveUsersSince(since time.Time) (int64, error)
	DeleteByUser(userID uint) error
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// Upsert writes the completion record keyed by (user, course, lesson),
// overwriting score, time spent and completion time of an earlier record.
func (r *progressRepository) Upsert(progress *models.UserProgress) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "score", "time_spent", "completed_at", "updated_at",
		}),
	}).Create(progress).Error
}

func (r *progressRepository) Get(userID, courseID, lessonID uint) (*models.UserProgress, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var progress models.UserProgress
	err := r.db.
		Where("user_id = ? AND course_id = ? AND lesson_id = ?", userID, courseID, lessonID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *progressRepository) CountCompleted(userID, courseID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.UserProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}

func (r *progressRepository) CompletedLessonIDs(userID, courseID uint) ([]uint, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var ids []uint
	err := r.db.Model(&models.UserProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Pluck("lesson_id", &ids).Error
	return ids, err
}

func (r *progressRepository) CompletedCountsByCourse(userID uint, courseIDs []uint) (map[uint]int, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	counts := make(map[uint]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID uint
		Total    int
	}
	err := r.db.Model(&models.UserProgress{}).
		Select("course_id, COUNT(*) AS total").
		Where("user_id = ? AND completed = ? AND course_id IN ?", userID, true, courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}

func (r *progressRepository) CountCompletedSince(since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.UserProgress{}).
		Where("completed = ? AND completed_at >= ?", true, since).
		Count(&count).Error
	return count, err
}

func (r *progressRepository) CountActiveUsersSince(since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.UserProgress{}).
		Where("completed = ? AND completed_at >= ?", true, since).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

func (r *progressRepository) DeleteByUser(userID uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Where("user_id = ?", userID).Delete(&models.UserProgress{}).Error
}
