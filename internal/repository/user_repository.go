package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
)

type UserRepository interface {
	Upsert(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByIDs(ids []uint) ([]models.User, error)
	List(limit, offset int) ([]models.User, int64, error)
	UpdateRole(id uint, role authorization.UserRole) error
	Delete(id uint) error
	Count() (int64, error)
	CountCreatedSince(since time.Time) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert stores the profile claims of an authenticated user. The role column
// is only written on insert so that role changes made by admins survive.
func (r *userRepository) Upsert(user *models.User) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar_url", "last_seen_at", "updated_at"}),
	}).Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ids []uint) ([]models.User, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) List(limit, offset int) ([]models.User, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, gorm.ErrInvalidDB
	}
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	query := r.db.Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) UpdateRole(id uint, role authorization.UserRole) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	result := r.db.Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(id uint) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	result := r.db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Count() (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) CountCreatedSince(since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var count int64
	err := r.db.Model(&models.User{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}
