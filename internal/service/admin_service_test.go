package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
)

type fakeFlusher struct {
	flushes int
}

func (f *fakeFlusher) Flush() error {
	f.flushes++
	return nil
}

func adminContext(t *testing.T) authorization.AdminContext {
	t.Helper()
	ctx, err := authorization.NewAdminContext(admin(1))
	require.NoError(t, err)
	return ctx
}

func TestAdminServiceRequiresAdminContext(t *testing.T) {
	store := newTestStore(t)
	svc := NewAdminService(store, &fakeScheduler{}, &fakeFlusher{})

	var zero authorization.AdminContext
	_, err := svc.Stats(zero)
	assert.ErrorIs(t, err, authorization.ErrNotAdmin)
	_, _, err = svc.ListUsers(zero, 1, 10)
	assert.ErrorIs(t, err, authorization.ErrNotAdmin)
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), zero, 5), authorization.ErrNotAdmin)
	assert.ErrorIs(t, svc.ReconcileLessons(zero), authorization.ErrNotAdmin)
	assert.ErrorIs(t, svc.FlushCache(zero), authorization.ErrNotAdmin)
}

func TestAdminStats(t *testing.T) {
	store := newTestStore(t)
	setClock(t, time.Now())
	_, lessons := seedCourse(t, store, 1, 2)
	repos := store.Repositories()
	require.NoError(t, repos.Users.Upsert(&models.User{ID: 80, Name: "Ada"}))
	require.NoError(t, repos.Users.Upsert(&models.User{ID: 81, Name: "Hal"}))

	progress := newProgressService(store, nil, nil)
	for _, userID := range []uint{80, 81} {
		_, err := progress.CompleteLesson(context.Background(), learner(userID), lessons[0].ID, models.CompleteLessonRequest{TimeSpent: 1})
		require.NoError(t, err)
	}

	stats, err := NewAdminService(store, nil, nil).Stats(adminContext(t))
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.UsersJoinedLast7Days)
	assert.EqualValues(t, 1, stats.TotalCourses)
	assert.EqualValues(t, 1, stats.PublishedCourses)
	assert.EqualValues(t, 2, stats.TotalLessons)
	assert.EqualValues(t, 2, stats.CompletionsLast24h)
	assert.EqualValues(t, 2, stats.ActiveLearnersLast7d)
	assert.EqualValues(t, 2, stats.AchievementsGranted, "first lesson milestone for both users")
}

func TestAdminUpdateRoleAndDeleteUser(t *testing.T) {
	store := newTestStore(t)
	_, lessons := seedCourse(t, store, 1, 1)
	repos := store.Repositories()
	require.NoError(t, repos.Users.Upsert(&models.User{ID: 90, Name: "Grace"}))
	_, err := newProgressService(store, nil, nil).CompleteLesson(context.Background(), learner(90), lessons[0].ID, models.CompleteLessonRequest{TimeSpent: 2})
	require.NoError(t, err)

	flusher := &fakeFlusher{}
	svc := NewAdminService(store, nil, flusher)
	ctx := adminContext(t)

	user, err := svc.UpdateUserRole(ctx, 90, "Instructor")
	require.NoError(t, err)
	assert.Equal(t, authorization.RoleInstructor, user.Role)

	_, err = svc.UpdateUserRole(ctx, 90, "owner")
	assert.True(t, IsValidationError(err))
	_, err = svc.UpdateUserRole(ctx, 404, "learner")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.UpdateUserRole(ctx, 1, "learner")
	assert.True(t, IsValidationError(err), "admins keep their own role")

	require.NoError(t, svc.DeleteUser(context.Background(), ctx, 90))
	assert.Equal(t, 1, flusher.flushes)

	_, err = repos.Users.GetByID(90)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repos.Stats.GetByUser(90)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	achievements, err := repos.Achievements.ListByUser(90)
	require.NoError(t, err)
	assert.Empty(t, achievements)

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), ctx, 90), ErrUserNotFound)
}

func TestAdminReconcileLessons(t *testing.T) {
	db := newTestDB(t)
	store := repository.NewStore(db)
	course, _ := seedCourse(t, store, 1, 3)
	require.NoError(t, db.Model(&models.Course{}).Where("id = ?", course.ID).UpdateColumn("total_lessons", 7).Error)

	scheduler := &fakeScheduler{}
	flusher := &fakeFlusher{}
	svc := NewAdminService(store, scheduler, flusher)

	require.NoError(t, svc.ReconcileLessons(adminContext(t)))
	require.Equal(t, []string{ReconcileLessonCountsJob}, scheduler.names())

	require.NoError(t, scheduler.jobs[0].Run(context.Background()))
	stored, err := store.Repositories().Courses.GetByID(course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalLessons)
	assert.Equal(t, 1, flusher.flushes)
}

func TestUserSyncKeepsStoredRole(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store, nil)

	user, err := svc.Sync(UserProfile{ID: 100, Email: "a@b.io", Name: "Nakamoto", Role: authorization.RoleLearner})
	require.NoError(t, err)
	assert.Equal(t, authorization.RoleLearner, user.Role)

	require.NoError(t, store.Repositories().Users.UpdateRole(100, authorization.RoleInstructor))

	user, err = svc.Sync(UserProfile{ID: 100, Email: "a@b.io", Name: "Satoshi", Role: authorization.RoleLearner})
	require.NoError(t, err)
	assert.Equal(t, authorization.RoleInstructor, user.Role)
	assert.Equal(t, "Satoshi", user.Name)

	_, err = svc.Sync(UserProfile{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

type staleSyncCache struct{}

func (staleSyncCache) MarkUserSynced(uint) (bool, error) { return false, nil }

func TestUserSyncSkipsWriteWithinWindow(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Repositories().Users.Upsert(&models.User{ID: 101, Name: "Before"}))

	user, err := NewUserService(store, staleSyncCache{}).Sync(UserProfile{ID: 101, Name: "After"})
	require.NoError(t, err)
	assert.Equal(t, "Before", user.Name)

	created, err := NewUserService(store, staleSyncCache{}).Sync(UserProfile{ID: 102, Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", created.Name, "unknown users are stored even within the window")
}
