package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

const (
	AchievementTypeCourseCompleted = "course_completed"
	AchievementTypeFirstLesson     = "first_lesson"
	AchievementTypeStreak          = "streak"
)

const (
	CourseStatusNotStarted = "not_started"
	CourseStatusInProgress = "in_progress"
	CourseStatusCompleted  = "completed"
)

// ActivityDateLayout is the calendar-day format of UserStats.LastActivityDate.
const ActivityDateLayout = "2006-01-02"

const (
	PointsPerMinute = 2
	PointsPerLevel  = 1000
	// MaxLessonMinutes bounds the time reported for one completion.
	MaxLessonMinutes = 1440
)

// PointsForTime converts minutes spent on a lesson into points.
func PointsForTime(minutes float64) int {
	if minutes <= 0 || math.IsNaN(minutes) {
		return 0
	}
	if minutes > MaxLessonMinutes {
		minutes = MaxLessonMinutes
	}
	return int(math.Floor(minutes * PointsPerMinute))
}

// LevelForPoints returns floor(points/1000)+1.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// UserProgress is the current completion record of one lesson for one user.
type UserProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uint `gorm:"not null;uniqueIndex:idx_user_progress_key,priority:1;index:idx_user_progress_user_course,priority:1" json:"user_id"`
	CourseID uint `gorm:"not null;uniqueIndex:idx_user_progress_key,priority:2;index:idx_user_progress_user_course,priority:2" json:"course_id"`
	LessonID uint `gorm:"not null;uniqueIndex:idx_user_progress_key,priority:3;index" json:"lesson_id"`

	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	Score       *int       `json:"score,omitempty"`
	TimeSpent   float64    `gorm:"not null;default:0" json:"time_spent"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// UserStats holds the aggregates derived from a user's completions.
type UserStats struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID           uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalPoints      int     `gorm:"not null;default:0;index:idx_user_stats_points,sort:desc" json:"total_points"`
	CurrentStreak    int     `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int     `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate string  `gorm:"type:varchar(10)" json:"last_activity_date"`
	CoursesCompleted int     `gorm:"not null;default:0" json:"courses_completed"`
	LessonsCompleted int     `gorm:"not null;default:0" json:"lessons_completed"`
	TotalTimeSpent   float64 `gorm:"not null;default:0" json:"total_time_spent"`
	Level            int     `gorm:"not null;default:1" json:"level"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// EmptyUserStats is returned for users who have not completed anything yet.
func EmptyUserStats(userID uint) UserStats {
	return UserStats{UserID: userID, Level: 1}
}

// Achievement is granted once per (user, key) and never modified.
type Achievement struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"-"`

	UserID      uint              `gorm:"not null;uniqueIndex:idx_achievements_user_key,priority:1;index" json:"user_id"`
	Key         string            `gorm:"type:varchar(128);not null;uniqueIndex:idx_achievements_user_key,priority:2" json:"key"`
	Type        string            `gorm:"type:varchar(64);not null;index" json:"type"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	CourseID    *uint             `gorm:"index" json:"course_id,omitempty"`
	EarnedAt    time.Time         `gorm:"not null;index" json:"earned_at"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
}

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"user_id"`
	Name             string `json:"name"`
	AvatarURL        string `json:"avatar_url"`
	TotalPoints      int    `json:"total_points"`
	Level            int    `json:"level"`
	CoursesCompleted int    `json:"courses_completed"`
	CurrentStreak    int    `json:"current_streak"`
}

type LessonView struct {
	Lesson
	Completed bool `json:"completed"`
}

type CourseView struct {
	Course
	Lessons            []LessonView `json:"lessons,omitempty"`
	CompletedLessons   int          `json:"completed_lessons"`
	ProgressPercentage int          `json:"progress_percentage"`
	Status             string       `json:"status"`
}

type CompleteLessonResult struct {
	Success bool `json:"success"`
}

type PlatformStatistics struct {
	TotalUsers           int64 `json:"total_users"`
	UsersJoinedLast7Days int64 `json:"users_joined_last_7_days"`
	TotalCourses         int64 `json:"total_courses"`
	PublishedCourses     int64 `json:"published_courses"`
	TotalLessons         int64 `json:"total_lessons"`
	CompletionsLast24h   int64 `json:"completions_last_24h"`
	CompletionsLast7Days int64 `json:"completions_last_7_days"`
	ActiveLearnersLast7d int64 `json:"active_learners_last_7_days"`
	AchievementsGranted  int64 `json:"achievements_granted"`
	ForumThreads         int64 `json:"forum_threads"`
}
