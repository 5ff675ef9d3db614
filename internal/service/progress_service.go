package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/background"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/logger"
)

const invalidateLeaderboardJob = "leaderboard:invalidate"

// JobScheduler queues background work.
type JobScheduler interface {
	ScheduleUnique(job background.Job) error
}

// LeaderboardCache is the part of the cache the completion pipeline touches.
type LeaderboardCache interface {
	InvalidateLeaderboard() error
}

// ProgressService records lesson completions and drives the completion
// pipeline: progress, then statistics, then achievements.
type ProgressService struct {
	store        repository.Store
	stats        *StatsService
	achievements *AchievementService
	cache        LeaderboardCache
	scheduler    JobScheduler
}

func NewProgressService(store repository.Store, stats *StatsService, achievements *AchievementService, cache LeaderboardCache, scheduler JobScheduler) *ProgressService {
	initMetrics()
	return &ProgressService{
		store:        store,
		stats:        stats,
		achievements: achievements,
		cache:        cache,
		scheduler:    scheduler,
	}
}

func (s *ProgressService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func validateCompletion(score *int, timeSpent float64) error {
	if math.IsNaN(timeSpent) || math.IsInf(timeSpent, 0) || timeSpent < 0 {
		return newValidationError("time spent must be a non-negative number of minutes")
	}
	if timeSpent > models.MaxLessonMinutes {
		return newValidationError("time spent cannot exceed %d minutes", models.MaxLessonMinutes)
	}
	if score != nil && (*score < 0 || *score > 100) {
		return newValidationError("score must be between 0 and 100")
	}
	return nil
}

// Record upserts the completion row for (user, course, lesson). The course is
// taken from the lesson. Drafts count as missing unless the actor manages the
// course.
func (s *ProgressService) Record(repos repository.Repositories, actor authorization.Actor, lessonID uint, score *int, timeSpent float64) (*models.UserProgress, error) {
	userID := actor.UserID
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := validateCompletion(score, timeSpent); err != nil {
		return nil, err
	}

	lesson, err := repos.Lessons.GetByID(lessonID)
	if err != nil {
		return nil, notFound(err, ErrLessonNotFound)
	}
	course, err := repos.Courses.GetByID(lesson.CourseID)
	if err != nil {
		return nil, notFound(err, ErrLessonNotFound)
	}
	if !lessonVisible(actor, course, lesson) {
		return nil, ErrLessonNotFound
	}

	completedAt := today()
	progress := &models.UserProgress{
		UserID:      userID,
		CourseID:    lesson.CourseID,
		LessonID:    lesson.ID,
		Completed:   true,
		Score:       score,
		TimeSpent:   timeSpent,
		CompletedAt: &completedAt,
	}
	if err := repos.Progress.Upsert(progress); err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}
	return progress, nil
}

type completionOutcome struct {
	progress     *models.UserProgress
	stats        *models.UserStats
	achievements []models.Achievement
}

// CompleteLesson runs the whole pipeline in one transaction. Any failure
// rolls back progress, statistics and achievements together.
func (s *ProgressService) CompleteLesson(ctx context.Context, actor authorization.Actor, lessonID uint, req models.CompleteLessonRequest) (*models.CompleteLessonResult, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if err := validateCompletion(req.Score, req.TimeSpent); err != nil {
		return nil, err
	}
	if s == nil || s.store == nil || s.stats == nil || s.achievements == nil {
		return nil, errors.New("progress service not configured")
	}

	start := time.Now()
	outcome, err := s.complete(actor, lessonID, req.Score, req.TimeSpent)
	completionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		lessonCompletions.WithLabelValues("failure").Inc()
		return nil, err
	}
	lessonCompletions.WithLabelValues("success").Inc()
	s.afterCommit(ctx, outcome, req.TimeSpent)

	return &models.CompleteLessonResult{Success: true}, nil
}

func (s *ProgressService) complete(actor authorization.Actor, lessonID uint, score *int, timeSpent float64) (*completionOutcome, error) {
	userID := actor.UserID
	outcome := &completionOutcome{}
	err := s.store.Transaction(func(repos repository.Repositories) error {
		progress, err := s.Record(repos, actor, lessonID, score, timeSpent)
		if err != nil {
			return err
		}
		outcome.progress = progress

		stats, err := s.stats.Apply(repos, userID, timeSpent)
		if err != nil {
			return err
		}
		outcome.stats = stats

		granted, err := s.achievements.EvaluateCourse(repos, userID, progress.CourseID)
		if err != nil {
			return err
		}
		if granted != nil {
			outcome.achievements = append(outcome.achievements, *granted)
		}

		milestones, err := s.achievements.EvaluateMilestones(repos, stats)
		if err != nil {
			return err
		}
		outcome.achievements = append(outcome.achievements, milestones...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *ProgressService) afterCommit(ctx context.Context, outcome *completionOutcome, timeSpent float64) {
	pointsAwarded.Add(float64(models.PointsForTime(timeSpent)))
	for _, achievement := range outcome.achievements {
		achievementsGranted.WithLabelValues(achievement.Type).Inc()
	}

	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id":    outcome.progress.UserID,
		"lesson_id":  outcome.progress.LessonID,
		"course_id":  outcome.progress.CourseID,
		"points":     outcome.stats.TotalPoints,
		"user_level": outcome.stats.Level,
	})
	log.Info("Lesson completed")
	for _, achievement := range outcome.achievements {
		log.WithField("achievement", achievement.Key).Info("Achievement granted")
	}

	s.invalidateLeaderboard(ctx)
}

func (s *ProgressService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}

	job := background.Job{
		Name:        invalidateLeaderboardJob,
		Timeout:     10 * time.Second,
		RetryPolicy: background.RetryPolicy{MaxRetries: 2, Backoff: time.Second},
		Run: func(context.Context) error {
			return s.cache.InvalidateLeaderboard()
		},
	}

	if s.scheduler != nil {
		err := s.scheduler.ScheduleUnique(job)
		if err == nil || errors.Is(err, background.ErrJobAlreadyScheduled) {
			return
		}
		logger.FromContext(ctx).WithError(err).Warn("Falling back to inline leaderboard invalidation")
	}

	if err := s.cache.InvalidateLeaderboard(); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to invalidate leaderboard cache")
	}
}
