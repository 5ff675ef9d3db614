package service

import (
	"errors"
	"fmt"

	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/pkg/cache"
	"cryptoacademy-backend/pkg/logger"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardStore caches computed leaderboards.
type LeaderboardStore interface {
	CacheLeaderboard(limit int, entries interface{}) error
	GetCachedLeaderboard(limit int, dest interface{}) error
}

type LeaderboardService struct {
	store repository.Store
	cache LeaderboardStore
}

func NewLeaderboardService(store repository.Store, cache LeaderboardStore) *LeaderboardService {
	initMetrics()
	return &LeaderboardService{store: store, cache: cache}
}

func (s *LeaderboardService) SetRepositories(store repository.Store) {
	if s == nil {
		return
	}
	s.store = store
}

// NormalizeLimit applies the default for non-positive limits and the upper cap.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	default:
		return limit
	}
}

// Top returns at most limit entries ordered by total points, highest first.
// Ties are broken by user id. Results may lag writes by the cache TTL.
func (s *LeaderboardService) Top(limit int) ([]models.LeaderboardEntry, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("leaderboard repository not configured")
	}
	limit = NormalizeLimit(limit)

	if s.cache != nil {
		var cached []models.LeaderboardEntry
		err := s.cache.GetCachedLeaderboard(limit, &cached)
		switch {
		case err == nil:
			leaderboardCacheReads.WithLabelValues("hit").Inc()
			return cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			leaderboardCacheReads.WithLabelValues("miss").Inc()
		case errors.Is(err, cache.ErrCacheDisabled):
		default:
			leaderboardCacheReads.WithLabelValues("error").Inc()
			logger.Warn("Failed to read cached leaderboard", map[string]interface{}{"error": err.Error()})
		}
	}

	rows, err := s.store.Repositories().Stats.Top(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		name := row.Name
		if name == "" {
			name = models.User{}.DisplayName()
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:             i + 1,
			UserID:           row.UserID,
			Name:             name,
			AvatarURL:        AvatarURLFor(row.UserID, row.AvatarURL),
			TotalPoints:      row.TotalPoints,
			Level:            row.Level,
			CoursesCompleted: row.CoursesCompleted,
			CurrentStreak:    row.CurrentStreak,
		})
	}

	if s.cache != nil {
		if err := s.cache.CacheLeaderboard(limit, entries); err != nil {
			logger.Warn("Failed to cache leaderboard", map[string]interface{}{"error": err.Error()})
		}
	}
	return entries, nil
}
