package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/background"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/logger"
)

const ReconcileLessonCountsJob = "courses:reconcile-lesson-counts"

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// CacheFlusher drops every cached projection.
type CacheFlusher interface {
	Flush() error
}

// AdminService backs the admin panel. Every operation requires an
// AdminContext issued for the current request.
type AdminService struct {
	store     repository.Store
	scheduler JobScheduler
	cache     CacheFlusher
}

func NewAdminService(store repository.Store, scheduler JobScheduler, cache CacheFlusher) *AdminService {
	return &AdminService{store: store, scheduler: scheduler, cache: cache}
}

func (s *AdminService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

func (s *AdminService) repos(admin authorization.AdminContext) (repository.Repositories, error) {
	if !admin.Valid() {
		return repository.Repositories{}, authorization.ErrNotAdmin
	}
	if s == nil || s.store == nil {
		return repository.Repositories{}, errors.New("admin repository not configured")
	}
	return s.store.Repositories(), nil
}

func (s *AdminService) Stats(admin authorization.AdminContext) (*models.PlatformStatistics, error) {
	repos, err := s.repos(admin)
	if err != nil {
		return nil, err
	}

	now := nowFunc().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var stats models.PlatformStatistics
	counters := []struct {
		name  string
		dest  *int64
		count func() (int64, error)
	}{
		{"users", &stats.TotalUsers, repos.Users.Count},
		{"new users", &stats.UsersJoinedLast7Days, func() (int64, error) { return repos.Users.CountCreatedSince(weekAgo) }},
		{"courses", &stats.TotalCourses, func() (int64, error) { return repos.Courses.Count(false) }},
		{"published courses", &stats.PublishedCourses, func() (int64, error) { return repos.Courses.Count(true) }},
		{"lessons", &stats.TotalLessons, repos.Lessons.Count},
		{"daily completions", &stats.CompletionsLast24h, func() (int64, error) { return repos.Progress.CountCompletedSince(dayAgo) }},
		{"weekly completions", &stats.CompletionsLast7Days, func() (int64, error) { return repos.Progress.CountCompletedSince(weekAgo) }},
		{"active learners", &stats.ActiveLearnersLast7d, func() (int64, error) { return repos.Progress.CountActiveUsersSince(weekAgo) }},
		{"achievements", &stats.AchievementsGranted, repos.Achievements.Count},
		{"forum threads", &stats.ForumThreads, repos.ForumThreads.Count},
	}
	for _, counter := range counters {
		value, err := counter.count()
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", counter.name, err)
		}
		*counter.dest = value
	}
	return &stats, nil
}

func (s *AdminService) ListUsers(admin authorization.AdminContext, page, limit int) ([]models.User, int64, error) {
	repos, err := s.repos(admin)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	users, total, err := repos.Users.List(limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

func (s *AdminService) UpdateUserRole(admin authorization.AdminContext, userID uint, role string) (*models.User, error) {
	repos, err := s.repos(admin)
	if err != nil {
		return nil, err
	}
	parsed, ok := authorization.ParseUserRole(role)
	if !ok {
		return nil, newValidationError("unknown role %q", role)
	}
	if userID == admin.Actor().UserID && parsed != authorization.RoleAdmin {
		return nil, newValidationError("admins cannot remove their own admin role")
	}
	if err := repos.Users.UpdateRole(userID, parsed); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	user, err := repos.Users.GetByID(userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// DeleteUser removes the user with their progress, statistics and
// achievements in one transaction. Forum content goes with the user row.
func (s *AdminService) DeleteUser(ctx context.Context, admin authorization.AdminContext, userID uint) error {
	if _, err := s.repos(admin); err != nil {
		return err
	}
	if userID == admin.Actor().UserID {
		return newValidationError("admins cannot delete themselves")
	}

	err := s.store.Transaction(func(repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(userID); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if err := repos.Progress.DeleteByUser(userID); err != nil {
			return fmt.Errorf("failed to delete progress: %w", err)
		}
		if err := repos.Stats.DeleteByUser(userID); err != nil {
			return fmt.Errorf("failed to delete statistics: %w", err)
		}
		if err := repos.Achievements.DeleteByUser(userID); err != nil {
			return fmt.Errorf("failed to delete achievements: %w", err)
		}
		return notFound(repos.Users.Delete(userID), ErrUserNotFound)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("deleted_user_id", userID).Info("User deleted by admin")
	s.flush(ctx)
	return nil
}

// ReconcileLessonsJob recomputes totalLessons for every course from live
// lesson rows.
func (s *AdminService) ReconcileLessonsJob() background.Job {
	return background.Job{
		Name:        ReconcileLessonCountsJob,
		Timeout:     2 * time.Minute,
		RetryPolicy: background.RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second},
		Run: func(ctx context.Context) error {
			if s == nil || s.store == nil {
				return errors.New("admin repository not configured")
			}
			fixed, err := s.store.Repositories().Courses.ReconcileLessonCounts()
			if err != nil {
				return err
			}
			if fixed > 0 {
				logger.Warn("Corrected course lesson counts", map[string]interface{}{"courses": fixed})
				s.flush(ctx)
			}
			return nil
		},
	}
}

// ReconcileLessons queues the reconciliation job. A run already queued
// counts as success.
func (s *AdminService) ReconcileLessons(admin authorization.AdminContext) error {
	if _, err := s.repos(admin); err != nil {
		return err
	}
	if s.scheduler == nil {
		return errors.New("scheduler not configured")
	}
	err := s.scheduler.ScheduleUnique(s.ReconcileLessonsJob())
	if err != nil && !errors.Is(err, background.ErrJobAlreadyScheduled) {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}
	return nil
}

func (s *AdminService) FlushCache(admin authorization.AdminContext) error {
	if _, err := s.repos(admin); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush()
}

func (s *AdminService) flush(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to flush cache")
	}
}
