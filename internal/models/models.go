package models

import (
	"time"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
)

const (
	CourseLevelBeginner     = "beginner"
	CourseLevelIntermediate = "intermediate"
	CourseLevelAdvanced     = "advanced"
)

const (
	LessonTypeText  = "text"
	LessonTypeVideo = "video"
	LessonTypeQuiz  = "quiz"
)

var (
	CourseLevels = []string{CourseLevelBeginner, CourseLevelIntermediate, CourseLevelAdvanced}
	LessonTypes  = []string{LessonTypeText, LessonTypeVideo, LessonTypeQuiz}
)

// User mirrors the profile held by the auth provider. The ID is the
// provider's user id and is never generated locally.
type User struct {
	ID        uint      `gorm:"primarykey;autoIncrement:false" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email      string                 `gorm:"index" json:"email"`
	Name       string                 `json:"name"`
	AvatarURL  string                 `json:"avatar_url,omitempty"`
	Role       authorization.UserRole `gorm:"type:varchar(32);default:'learner'" json:"role"`
	LastSeenAt *time.Time             `json:"last_seen_at,omitempty"`
}

// DisplayName returns the name shown on public surfaces such as the leaderboard.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "Anonymous"
}

type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title        string `gorm:"not null" json:"title"`
	Slug         string `gorm:"not null;uniqueIndex:idx_courses_slug,where:deleted_at IS NULL" json:"slug"`
	Description  string `gorm:"type:text" json:"description"`
	Level        string `gorm:"type:varchar(32);not null;default:'beginner';index" json:"level"`
	Category     string `gorm:"type:varchar(64);index" json:"category"`
	ImageURL     string `json:"image_url,omitempty"`
	TotalLessons int    `gorm:"not null;default:0" json:"total_lessons"`
	IsPublished  bool   `gorm:"not null;default:false;index" json:"is_published"`
	IsPreview    bool   `gorm:"not null;default:false" json:"is_preview"`
	CreatorID    uint   `gorm:"not null;index" json:"creator_id"`
}

type Lesson struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CourseID        uint   `gorm:"not null;index:idx_lessons_course_position,priority:1" json:"course_id"`
	Title           string `gorm:"not null" json:"title"`
	Summary         string `json:"summary"`
	Content         string `gorm:"type:text" json:"content"`
	Position        int    `gorm:"not null;default:0;index:idx_lessons_course_position,priority:2" json:"order"`
	Type            string `gorm:"type:varchar(16);not null;default:'text'" json:"type"`
	IsPublished     bool   `gorm:"not null;default:false" json:"is_published"`
	DurationMinutes int    `gorm:"not null;default:0" json:"duration_minutes"`

	VideoURL             string `json:"video_url,omitempty"`
	VideoProvider        string `gorm:"type:varchar(32)" json:"video_provider,omitempty"`
	VideoAssetID         string `json:"video_asset_id,omitempty"`
	VideoStatus          string `gorm:"type:varchar(32)" json:"video_status,omitempty"`
	VideoDurationSeconds int    `json:"video_duration_seconds,omitempty"`
}
