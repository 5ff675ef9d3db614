package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
)

// nowFunc is the clock used to decide the current activity day.
var nowFunc = time.Now

func today() time.Time {
	return nowFunc().UTC()
}

// StatsService maintains the per-user aggregates: points, streaks, level,
// lessons completed and time spent.
type StatsService struct {
	store repository.Store
}

func NewStatsService(store repository.Store) *StatsService {
	initMetrics()
	return &StatsService{store: store}
}

func (s *StatsService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

// Apply credits one completed lesson worth timeSpent minutes to the user.
// Every call counts, including repeated completions of the same lesson.
func (s *StatsService) Apply(repos repository.Repositories, userID uint, timeSpent float64) (*models.UserStats, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if repos.Stats == nil {
		return nil, errors.New("stats repository not configured")
	}

	now := today()
	points := models.PointsForTime(timeSpent)

	stats, err := repos.Stats.GetByUserForUpdate(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := &models.UserStats{
			UserID:           userID,
			TotalPoints:      points,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: now.Format(models.ActivityDateLayout),
			LessonsCompleted: 1,
			TotalTimeSpent:   timeSpent,
			Level:            models.LevelForPoints(points),
		}
		inserted, createErr := repos.Stats.CreateIfAbsent(fresh)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create stats: %w", createErr)
		}
		if inserted {
			return fresh, nil
		}
		// Another completion created the row first.
		stats, err = repos.Stats.GetByUserForUpdate(userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	advance(stats, now, points, timeSpent)
	if err := repos.Stats.Save(stats); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}
	return stats, nil
}

// advance applies one completion on day now to existing stats.
func advance(stats *models.UserStats, now time.Time, points int, timeSpent float64) {
	stats.CurrentStreak = nextStreak(stats.CurrentStreak, stats.LastActivityDate, now)
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.TotalPoints += points
	stats.Level = models.LevelForPoints(stats.TotalPoints)
	stats.LessonsCompleted++
	stats.TotalTimeSpent += timeSpent
	stats.LastActivityDate = now.Format(models.ActivityDateLayout)
}

// nextStreak keeps the streak on the same day, extends it when the last
// activity was the previous calendar day and restarts it otherwise.
func nextStreak(current int, lastActivity string, now time.Time) int {
	todayKey := now.Format(models.ActivityDateLayout)
	switch lastActivity {
	case todayKey:
		if current < 1 {
			return 1
		}
		return current
	case now.AddDate(0, 0, -1).Format(models.ActivityDateLayout):
		return current + 1
	default:
		return 1
	}
}

// GetForUser returns the caller's stats, or zero stats at level 1 when the
// caller has not completed anything yet.
func (s *StatsService) GetForUser(actor authorization.Actor) (*models.UserStats, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if s == nil || s.store == nil {
		return nil, errors.New("stats repository not configured")
	}

	stats, err := s.store.Repositories().Stats.GetByUser(actor.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		empty := models.EmptyUserStats(actor.UserID)
		return &empty, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}
