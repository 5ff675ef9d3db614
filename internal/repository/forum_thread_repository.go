package repository

import (
	"strings"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/models"
)

type ForumThreadRepository interface {
	Create(thread *models.ForumThread) error
	Update(thread *models.ForumThread) error
	Delete(id uint) error
	GetByID(id uint) (*models.ForumThread, error)
	List(offset, limit int, search string, courseID *uint) ([]models.ForumThread, int64, error)
	Count() (int64, error)
}

type ForumReplyRepository interface {
	Create(reply *models.ForumReply) error
	Update(reply *models.ForumReply) error
	Delete(id uint) error
	GetByID(id uint) (*models.ForumReply, error)
}

type forumThreadRepository struct {
	db *gorm.DB
}

type forumReplyRepository struct {
	db *gorm.DB
}

func NewForumThreadRepository(db *gorm.DB) ForumThreadRepository {
	return &forumThreadRepository{db: db}
}

func NewForumReplyRepository(db *gorm.DB) ForumReplyRepository {
	return &forumReplyRepository{db: db}
}

func (r *forumThreadRepository) Create(thread *models.ForumThread) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Create(thread).Error
}

func (r *forumThreadRepository) Update(thread *models.ForumThread) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Omit("Author", "Replies").Save(thread).Error
}

func (r *forumThreadRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.ForumReply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", id).Delete(&models.ForumThreadVote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ForumThread{}, id).Error
	})
}

func (r *forumThreadRepository) GetByID(id uint) (*models.ForumThread, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var thread models.ForumThread
	err := r.db.
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Preload("Author").Order("created_at ASC, id ASC")
		}).
		First(&thread, id).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *forumThreadRepository) List(offset, limit int, search string, courseID *uint) ([]models.ForumThread, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, gorm.ErrInvalidDB
	}

	query := r.db.Model(&models.ForumThread{})

	cleanedSearch := strings.ToLower(strings.TrimSpace(search))
	if cleanedSearch != "" {
		like := "%" + cleanedSearch + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like)
	}

	if courseID != nil {
		query = query.Where("course_id = ?", *courseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}

	var threads []models.ForumThread
	err := query.
		Preload("Author").
		Order("created_at DESC, id DESC").
		Find(&threads).Error
	return threads, total, err
}

func (r *forumThreadRepository) Count() (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.ForumThread{}).Count(&count).Error
	return count, err
}

// Create stores the reply and bumps the thread's reply counter.
func (r *forumReplyRepository) Create(reply *models.ForumReply) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var thread models.ForumThread
		if err := tx.Select("id").First(&thread, reply.ThreadID).Error; err != nil {
			return err
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.ForumThread{}).
			Where("id = ?", reply.ThreadID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error
	})
}

func (r *forumReplyRepository) Update(reply *models.ForumReply) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Omit("Author").Save(reply).Error
}

func (r *forumReplyRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var reply models.ForumReply
		if err := tx.Select("id", "thread_id").First(&reply, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ForumReply{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&models.ForumThread{}).
			Where("id = ? AND reply_count > 0", reply.ThreadID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - ?", 1)).Error
	})
}

func (r *forumReplyRepository) GetByID(id uint) (*models.ForumReply, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var reply models.ForumReply
	if err := r.db.Preload("Author").First(&reply, id).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}
