package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/pkg/cache"
)

func instructor(id uint) authorization.Actor {
	return authorization.Actor{UserID: id, Role: authorization.RoleInstructor}
}

func admin(id uint) authorization.Actor {
	return authorization.Actor{UserID: id, Role: authorization.RoleAdmin}
}

type fakeCatalogCache struct {
	courses       []models.Course
	cached        bool
	invalidations int
}

func (c *fakeCatalogCache) CacheCatalog(courses interface{}) error {
	c.courses = courses.([]models.Course)
	c.cached = true
	return nil
}

func (c *fakeCatalogCache) GetCachedCatalog(dest interface{}) error {
	if !c.cached {
		return cache.ErrCacheMiss
	}
	*(dest.(*[]models.Course)) = c.courses
	return nil
}

func (c *fakeCatalogCache) InvalidateCatalog() error {
	c.invalidations++
	c.cached = false
	return nil
}

func TestProgressPercentageAndStatus(t *testing.T) {
	tests := []struct {
		completed, total int
		percentage       int
		status           string
	}{
		{completed: 0, total: 0, percentage: 0, status: models.CourseStatusNotStarted},
		{completed: 0, total: 4, percentage: 0, status: models.CourseStatusNotStarted},
		{completed: 1, total: 3, percentage: 33, status: models.CourseStatusInProgress},
		{completed: 2, total: 3, percentage: 67, status: models.CourseStatusInProgress},
		{completed: 3, total: 3, percentage: 100, status: models.CourseStatusCompleted},
		{completed: 4, total: 3, percentage: 100, status: models.CourseStatusCompleted},
	}
	for _, tt := range tests {
		if got := ProgressPercentage(tt.completed, tt.total); got != tt.percentage {
			t.Fatalf("expected %d%% for %d/%d, got %d", tt.percentage, tt.completed, tt.total, got)
		}
		if got := CourseStatus(tt.completed, tt.total); got != tt.status {
			t.Fatalf("expected %s for %d/%d, got %s", tt.status, tt.completed, tt.total, got)
		}
	}
}

func TestGetCourseProjectsProgress(t *testing.T) {
	store := newTestStore(t)
	course, lessons := seedCourse(t, store, 1, 2)
	progress := newProgressService(store, nil, nil)
	courses := NewCourseService(store, nil)

	view, err := courses.GetCourse(authorization.Anonymous(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusNotStarted, view.Status)
	assert.Len(t, view.Lessons, 2)

	_, err = progress.CompleteLesson(context.Background(), learner(21), lessons[1].ID, models.CompleteLessonRequest{TimeSpent: 3})
	require.NoError(t, err)

	view, err = courses.GetCourse(learner(21), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CompletedLessons)
	assert.Equal(t, 50, view.ProgressPercentage)
	assert.Equal(t, models.CourseStatusInProgress, view.Status)
	require.Len(t, view.Lessons, 2)
	assert.Equal(t, lessons[0].ID, view.Lessons[0].ID, "lessons keep their order")
	assert.False(t, view.Lessons[0].Completed)
	assert.True(t, view.Lessons[1].Completed)
}

func TestListCoursesHidesDrafts(t *testing.T) {
	store := newTestStore(t)
	published, _ := seedCourse(t, store, 1, 1)
	courses := NewCourseService(store, nil)

	draft, err := courses.CreateCourse(instructor(30), models.CreateCourseRequest{Title: "Ethereum <b>Gas</b> Deep Dive"})
	require.NoError(t, err)
	assert.Equal(t, "ethereum-gas-deep-dive", draft.Slug)
	assert.Equal(t, "Ethereum Gas Deep Dive", draft.Title)
	assert.Equal(t, models.CourseLevelBeginner, draft.Level)
	assert.False(t, draft.IsPublished)

	ids := func(views []models.CourseView) []uint {
		out := make([]uint, len(views))
		for i, view := range views {
			out[i] = view.ID
		}
		return out
	}

	anonymous, err := courses.ListCourses(authorization.Anonymous(), CourseQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint{published.ID}, ids(anonymous))

	own, err := courses.ListCourses(instructor(30), CourseQuery{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{published.ID, draft.ID}, ids(own))

	other, err := courses.ListCourses(instructor(31), CourseQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint{published.ID}, ids(other))

	all, err := courses.ListCourses(admin(1), CourseQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = courses.GetCourse(learner(2), draft.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseAuthorizationRules(t *testing.T) {
	store := newTestStore(t)
	courses := NewCourseService(store, nil)

	_, err := courses.CreateCourse(authorization.Anonymous(), models.CreateCourseRequest{Title: "Wallets"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = courses.CreateCourse(learner(5), models.CreateCourseRequest{Title: "Wallets"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	course, err := courses.CreateCourse(instructor(6), models.CreateCourseRequest{Title: "Wallets", Level: "Advanced"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseLevelAdvanced, course.Level)

	title := "Hijacked"
	_, err = courses.UpdateCourse(instructor(7), course.ID, models.UpdateCourseRequest{Title: &title})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = courses.SetPublished(learner(6), course.ID, true)
	assert.ErrorIs(t, err, ErrUnauthorized)

	updated, err := courses.SetPublished(admin(1), course.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)

	_, err = courses.CreateCourse(instructor(6), models.CreateCourseRequest{Title: "Other", Slug: "wallets"})
	assert.ErrorIs(t, err, ErrSlugTaken)

	second, err := courses.CreateCourse(instructor(6), models.CreateCourseRequest{Title: "Wallets"})
	require.NoError(t, err)
	assert.Equal(t, "wallets-2", second.Slug)

	_, err = courses.CreateCourse(instructor(6), models.CreateCourseRequest{Title: "Wallets", Level: "expert"})
	assert.True(t, IsValidationError(err))

	require.NoError(t, courses.DeleteCourse(instructor(6), second.ID))
	_, err = courses.GetCourse(instructor(6), second.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCatalogCacheUsedForPlainListing(t *testing.T) {
	store := newTestStore(t)
	course, _ := seedCourse(t, store, 1, 1)
	catalog := &fakeCatalogCache{}
	courses := NewCourseService(store, catalog)

	_, err := courses.ListCourses(learner(3), CourseQuery{})
	require.NoError(t, err)
	require.True(t, catalog.cached)
	require.Len(t, catalog.courses, 1)

	catalog.courses[0].Title = "From cache"
	views, err := courses.ListCourses(authorization.Anonymous(), CourseQuery{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "From cache", views[0].Title)

	filtered, err := courses.ListCourses(authorization.Anonymous(), CourseQuery{Search: "bitcoin"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Bitcoin Basics", filtered[0].Title, "filtered listings bypass the cache")

	_, err = courses.SetPublished(admin(1), course.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.invalidations)
}

func TestLessonLifecycle(t *testing.T) {
	store := newTestStore(t)
	courses := NewCourseService(store, nil)
	lessons := NewLessonService(store, courses)
	owner := instructor(40)

	course, err := courses.CreateCourse(owner, models.CreateCourseRequest{Title: "DeFi 101"})
	require.NoError(t, err)

	first, err := lessons.CreateLesson(owner, course.ID, models.CreateLessonRequest{Title: "Liquidity", IsPublished: true})
	require.NoError(t, err)
	second, err := lessons.CreateLesson(owner, course.ID, models.CreateLessonRequest{Title: "Impermanent loss", Type: models.LessonTypeVideo, VideoURL: "https://video.example/1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, models.LessonTypeText, first.Type)
	assert.Equal(t, "ready", second.VideoStatus)

	_, err = lessons.CreateLesson(instructor(41), course.ID, models.CreateLessonRequest{Title: "Intrusion"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, err := store.Repositories().Courses.GetByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalLessons)

	ordered, err := lessons.ReorderLessons(owner, course.ID, []uint{second.ID, first.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, second.ID, ordered[0].ID)

	_, err = lessons.ReorderLessons(owner, course.ID, []uint{second.ID, second.ID})
	assert.True(t, IsValidationError(err))
	_, err = lessons.ReorderLessons(owner, course.ID, []uint{second.ID})
	assert.True(t, IsValidationError(err))

	text := models.LessonTypeText
	updated, err := lessons.UpdateLesson(owner, second.ID, models.UpdateLessonRequest{Type: &text})
	require.NoError(t, err)
	assert.Empty(t, updated.VideoURL)

	_, err = lessons.GetLesson(learner(2), second.ID)
	assert.ErrorIs(t, err, ErrLessonNotFound, "lessons of unpublished courses are hidden")

	require.NoError(t, lessons.DeleteLesson(owner, first.ID))
	stored, err = store.Repositories().Courses.GetByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalLessons)
}

func TestLeaderboardOrderingAndLimit(t *testing.T) {
	store := newTestStore(t)
	repos := store.Repositories()
	require.NoError(t, repos.Users.Upsert(&models.User{ID: 3, Name: "Satoshi"}))

	for id, points := range map[uint]int{1: 500, 2: 900, 3: 900, 4: 100, 5: 2500} {
		stats := models.EmptyUserStats(id)
		stats.TotalPoints = points
		stats.Level = models.LevelForPoints(points)
		_, err := repos.Stats.CreateIfAbsent(&stats)
		require.NoError(t, err)
	}

	cache := &fakeLeaderboardCache{}
	leaderboard := NewLeaderboardService(store, cache)

	entries, err := leaderboard.Top(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []uint{5, 2, 3}, []uint{entries[0].UserID, entries[1].UserID, entries[2].UserID})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
	assert.Equal(t, 3, entries[0].Level)
	assert.Equal(t, "Anonymous", entries[1].Name)
	assert.Equal(t, "Satoshi", entries[2].Name)

	require.Contains(t, cache.entries, 3)

	all, err := leaderboard.Top(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	require.Contains(t, cache.entries, DefaultLeaderboardLimit)

	assert.Equal(t, MaxLeaderboardLimit, NormalizeLimit(1000))
}

func TestLeaderboardServesCachedEntries(t *testing.T) {
	store := newTestStore(t)
	cache := &fakeLeaderboardCache{entries: map[int][]models.LeaderboardEntry{
		DefaultLeaderboardLimit: {{Rank: 1, UserID: 99, Name: "Cached", TotalPoints: 42}},
	}}

	entries, err := NewLeaderboardService(store, cache).Top(-5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cached", entries[0].Name)
}
