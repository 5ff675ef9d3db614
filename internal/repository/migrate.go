package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/models"
)

// Models lists every table managed by the service in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Quiz{},
		&models.UserProgress{},
		&models.UserStats{},
		&models.Achievement{},
		&models.ForumThread{},
		&models.ForumReply{},
		&models.ForumThreadVote{},
	}
}

func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}
