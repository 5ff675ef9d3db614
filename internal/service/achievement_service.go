package service

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
)

const courseMasterTitle = "Course Master"

type milestone struct {
	key         string
	kind        string
	title       string
	description string
	icon        string
	reached     func(stats *models.UserStats) bool
}

var milestones = []milestone{
	{
		key:         "first_lesson",
		kind:        models.AchievementTypeFirstLesson,
		title:       "First Steps",
		description: "Completed your first lesson",
		icon:        "🎓",
		reached:     func(stats *models.UserStats) bool { return stats.LessonsCompleted >= 1 },
	},
	{
		key:         "streak_7",
		kind:        models.AchievementTypeStreak,
		title:       "Week Warrior",
		description: "Learned seven days in a row",
		icon:        "🔥",
		reached:     func(stats *models.UserStats) bool { return stats.CurrentStreak >= 7 },
	},
	{
		key:         "streak_30",
		kind:        models.AchievementTypeStreak,
		title:       "HODL Habit",
		description: "Learned thirty days in a row",
		icon:        "💎",
		reached:     func(stats *models.UserStats) bool { return stats.CurrentStreak >= 30 },
	},
}

// CourseCompletedKey is the achievement key granted for finishing courseID.
func CourseCompletedKey(courseID uint) string {
	return fmt.Sprintf("%s:%d", models.AchievementTypeCourseCompleted, courseID)
}

type AchievementService struct {
	store repository.Store
}

func NewAchievementService(store repository.Store) *AchievementService {
	initMetrics()
	return &AchievementService{store: store}
}

func (s *AchievementService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

// EvaluateCourse grants the course completion achievement once the number of
// completed lessons equals the course's lesson count. It returns the granted
// achievement, or nil when nothing was granted. Only the call that inserts the
// achievement increments coursesCompleted.
func (s *AchievementService) EvaluateCourse(repos repository.Repositories, userID, courseID uint) (*models.Achievement, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	course, err := repos.Courses.GetByID(courseID)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	if course.TotalLessons <= 0 {
		return nil, nil
	}

	completed, err := repos.Progress.CountCompleted(userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	if completed != int64(course.TotalLessons) {
		return nil, nil
	}

	id := course.ID
	achievement := &models.Achievement{
		UserID:      userID,
		Key:         CourseCompletedKey(course.ID),
		Type:        models.AchievementTypeCourseCompleted,
		Title:       courseMasterTitle,
		Description: fmt.Sprintf("Completed the course \"%s\"", course.Title),
		Icon:        "🏆",
		CourseID:    &id,
		EarnedAt:    today(),
		Metadata:    datatypes.JSONMap{"courseId": course.ID, "courseTitle": course.Title},
	}
	inserted, err := repos.Achievements.CreateIfAbsent(achievement)
	if err != nil {
		return nil, fmt.Errorf("failed to grant course achievement: %w", err)
	}
	if !inserted {
		return nil, nil
	}

	if err := repos.Stats.IncrementCoursesCompleted(userID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to count completed course: %w", err)
		}
		stats := models.EmptyUserStats(userID)
		stats.CoursesCompleted = 1
		if _, err := repos.Stats.CreateIfAbsent(&stats); err != nil {
			return nil, fmt.Errorf("failed to count completed course: %w", err)
		}
	}
	return achievement, nil
}

// EvaluateMilestones grants the activity milestones reached by stats that the
// user does not hold yet.
func (s *AchievementService) EvaluateMilestones(repos repository.Repositories, stats *models.UserStats) ([]models.Achievement, error) {
	if stats == nil || stats.UserID == 0 {
		return nil, nil
	}

	var granted []models.Achievement
	for _, m := range milestones {
		if !m.reached(stats) {
			continue
		}
		achievement := models.Achievement{
			UserID:      stats.UserID,
			Key:         m.key,
			Type:        m.kind,
			Title:       m.title,
			Description: m.description,
			Icon:        m.icon,
			EarnedAt:    today(),
			Metadata:    datatypes.JSONMap{"streak": stats.CurrentStreak, "lessonsCompleted": stats.LessonsCompleted},
		}
		inserted, err := repos.Achievements.CreateIfAbsent(&achievement)
		if err != nil {
			return nil, fmt.Errorf("failed to grant %s: %w", m.key, err)
		}
		if inserted {
			granted = append(granted, achievement)
		}
	}
	return granted, nil
}

// ListForUser returns the caller's achievements, newest first.
func (s *AchievementService) ListForUser(actor authorization.Actor) ([]models.Achievement, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if s == nil || s.store == nil {
		return nil, errors.New("achievement repository not configured")
	}
	achievements, err := s.store.Repositories().Achievements.ListByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	return achievements, nil
}
