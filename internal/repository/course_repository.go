package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoacademy-backend/internal/models"
)

// CourseFilter narrows course listings. Drafts are only returned when
// PublishedOnly is false or when they belong to IncludeDraftsOf.
type CourseFilter struct {
	Category        string
	Level           string
	Search          string
	PublishedOnly   bool
	IncludeDraftsOf uint
	Limit           int
	Offset          int
}

type CourseRepository interface {
	Create(course *models.Course) error
	Update(course *models.Course) error
	Delete(id uint) error
	GetByID(id uint) (*models.Course, error)
	GetBySlug(slug string) (*models.Course, error)
	ExistsBySlug(slug string, excludeID uint) (bool, error)
	List(filter CourseFilter) ([]models.Course, error)
	Count(publishedOnly bool) (int64, error)
	ReconcileLessonCounts() (int64, error)
}

type LessonRepository interface {
	Create(lesson *models.Lesson) error
	Update(lesson *models.Lesson) error
	Delete(lesson *models.Lesson) error
	GetByID(id uint) (*models.Lesson, error)
	ListByCourse(courseID uint, publishedOnly bool) ([]models.Lesson, error)
	NextPosition(courseID uint) (int, error)
	Reorder(courseID uint, lessonIDs []uint) error
	Count() (int64, error)
}

type QuizRepository interface {
	Upsert(quiz *models.Quiz) error
	GetByLesson(lessonID uint) (*models.Quiz, error)
	DeleteByLesson(lessonID uint) error
}

type courseRepository struct {
	db *gorm.DB
}

type lessonRepository struct {
	db *gorm.DB
}

type quizRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *courseRepository) Create(course *models.Course) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Create(course).Error
}

func (r *courseRepository) Update(course *models.Course) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Save(course).Error
}

// Delete removes the course together with its lessons, quizzes and the
// progress rows recorded against it. Achievements already granted are kept.
func (r *courseRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Select("id").First(&course, id).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.UserProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&course).Error
	})
}

func (r *courseRepository) GetByID(id uint) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetBySlug(slug string) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var course models.Course
	if err := r.db.Where("slug = ?", slug).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) ExistsBySlug(slug string, excludeID uint) (bool, error) {
	if r == nil || r.db == nil {
		return false, gorm.ErrInvalidDB
	}
	query := r.db.Model(&models.Course{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepository) List(filter CourseFilter) ([]models.Course, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	query := r.db.Model(&models.Course{})
	if filter.PublishedOnly {
		if filter.IncludeDraftsOf != 0 {
			query = query.Where("is_published = ? OR creator_id = ?", true, filter.IncludeDraftsOf)
		} else {
			query = query.Where("is_published = ?", true)
		}
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if level := strings.TrimSpace(filter.Level); level != "" {
		query = query.Where("level = ?", level)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var courses []models.Course
	err := query.Order("created_at DESC").Order("id DESC").Find(&courses).Error
	return courses, err
}

func (r *courseRepository) Count(publishedOnly bool) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	query := r.db.Model(&models.Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// ReconcileLessonCounts recomputes total_lessons from the live lesson rows and
// returns the number of courses whose counter was corrected.
func (r *courseRepository) ReconcileLessonCounts() (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	live := r.db.Model(&models.Lesson{}).Select("COUNT(*)").Where("lessons.course_id = courses.id")
	result := r.db.Model(&models.Course{}).
		Where("total_lessons <> (?)", live).
		UpdateColumn("total_lessons", gorm.Expr("(?)", live))
	return result.RowsAffected, result.Error
}

// Create inserts the lesson and increments the owning course's total_lessons
// in the same transaction.
func (r *lessonRepository) Create(lesson *models.Lesson) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var course models.Course
		if err := tx.Select("id").First(&course, lesson.CourseID).Error; err != nil {
			return err
		}
		if err := tx.Create(lesson).Error; err != nil {
			return err
		}
		return tx.Model(&models.Course{}).
			Where("id = ?", lesson.CourseID).
			UpdateColumn("total_lessons", gorm.Expr("total_lessons + ?", 1)).Error
	})
}

func (r *lessonRepository) Update(lesson *models.Lesson) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Save(lesson).Error
}

// Delete removes the lesson, its quiz and its progress rows, and decrements
// the owning course's total_lessons.
func (r *lessonRepository) Delete(lesson *models.Lesson) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.UserProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.Quiz{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Lesson{}, lesson.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Course{}).
			Where("id = ? AND total_lessons > 0", lesson.CourseID).
			UpdateColumn("total_lessons", gorm.Expr("total_lessons - ?", 1)).Error
	})
}

func (r *lessonRepository) GetByID(id uint) (*models.Lesson, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var lesson models.Lesson
	if err := r.db.First(&lesson, id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepository) ListByCourse(courseID uint, publishedOnly bool) ([]models.Lesson, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	query := r.db.Where("course_id = ?", courseID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var lessons []models.Lesson
	err := query.Order("position ASC").Order("id ASC").Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepository) NextPosition(courseID uint) (int, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var highest *int
	if err := r.db.Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Select("MAX(position)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}
	if highest == nil {
		return 1, nil
	}
	return *highest + 1, nil
}

func (r *lessonRepository) Reorder(courseID uint, lessonIDs []uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for index, id := range lessonIDs {
			result := tx.Model(&models.Lesson{}).
				Where("id = ? AND course_id = ?", id, courseID).
				UpdateColumn("position", index+1)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *lessonRepository) Count() (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.Lesson{}).Count(&count).Error
	return count, err
}

func (r *quizRepository) Upsert(quiz *models.Quiz) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"course_id", "title", "passing_score", "questions", "updated_at"}),
	}).Create(quiz).Error
}

func (r *quizRepository) GetByLesson(lessonID uint) (*models.Quiz, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var quiz models.Quiz
	if err := r.db.Where("lesson_id = ?", lessonID).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) DeleteByLesson(lessonID uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Where("lesson_id = ?", lessonID).Delete(&models.Quiz{}).Error
}
