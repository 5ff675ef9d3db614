package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/internal/service"
	"cryptoacademy-backend/pkg/validator"
)

const testSecret = "handler-secret"

type testServer struct {
	router *gin.Engine
	store  repository.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Init()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	store := repository.NewStore(db)
	stats := service.NewStatsService(store)
	achievements := service.NewAchievementService(store)
	progress := service.NewProgressService(store, stats, achievements, nil, nil)
	courses := service.NewCourseService(store, nil)
	lessons := service.NewLessonService(store, courses)
	users := service.NewUserService(store, nil)
	admin := service.NewAdminService(store, nil, nil)

	courseHandler := NewCourseHandler(courses)
	lessonHandler := NewLessonHandler(lessons, progress)
	learnerHandler := NewLearnerHandler(users, stats, achievements, service.NewLeaderboardService(store, nil), service.NewAvatarService())
	adminHandler := NewAdminHandler(admin, courses)

	router := gin.New()
	api := router.Group("/api/v1")

	public := api.Group("")
	public.Use(middleware.OptionalAuthMiddleware(testSecret), middleware.UserSyncMiddleware(users))
	public.GET("/courses/:id", courseHandler.Get)
	public.GET("/leaderboard", learnerHandler.Leaderboard)
	public.GET("/users/:id/avatar", learnerHandler.Avatar)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(testSecret), middleware.UserSyncMiddleware(users))
	authed.POST("/courses", courseHandler.Create)
	authed.PUT("/courses/:id/publish", courseHandler.Publish)
	authed.POST("/courses/:id/lessons", lessonHandler.Create)
	authed.POST("/lessons/:id/complete", lessonHandler.Complete)
	authed.GET("/me/stats", learnerHandler.Stats)
	authed.GET("/me/achievements", learnerHandler.Achievements)

	adminGroup := authed.Group("/admin")
	adminGroup.Use(middleware.AdminMiddleware())
	adminGroup.GET("/stats", adminHandler.Stats)

	return &testServer{router: router, store: store}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"name":    fmt.Sprintf("User %d", userID),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func TestAuthoringAndCompletionFlow(t *testing.T) {
	srv := newTestServer(t)
	instructor := token(t, 10, "instructor")
	learner := token(t, 20, "learner")

	rec := srv.do(t, http.MethodPost, "/api/v1/courses", learner, gin.H{"title": "DeFi 101"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/courses", instructor, gin.H{"title": "DeFi 101", "level": "expert"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/courses", instructor, gin.H{"title": "DeFi 101"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Course models.Course `json:"course"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "defi-101", created.Course.Slug)
	courseID := created.Course.ID

	for i := 1; i <= 2; i++ {
		rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/lessons", courseID), instructor,
			gin.H{"title": fmt.Sprintf("Lesson %d", i), "is_published": true})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", courseID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPut, fmt.Sprintf("/api/v1/courses/%d/publish", courseID), instructor, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", courseID), learner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Course models.CourseView `json:"course"`
	}
	decode(t, rec, &view)
	require.Len(t, view.Course.Lessons, 2)
	assert.Equal(t, 2, view.Course.TotalLessons)

	firstLesson := view.Course.Lessons[0].ID
	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/lessons/%d/complete", firstLesson), "", gin.H{"time_spent": 5})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/lessons/%d/complete", firstLesson), learner, gin.H{"time_spent": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/lessons/%d/complete", firstLesson), learner, gin.H{"time_spent": 1e19})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/lessons/%d/complete", firstLesson), learner, gin.H{"time_spent": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", courseID), learner, nil)
	decode(t, rec, &view)
	assert.Equal(t, 50, view.Course.ProgressPercentage)
	assert.Equal(t, models.CourseStatusInProgress, view.Course.Status)

	rec = srv.do(t, http.MethodGet, "/api/v1/me/stats", learner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats models.UserStats `json:"stats"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 10, stats.Stats.TotalPoints)
	assert.Equal(t, 1, stats.Stats.LessonsCompleted)

	rec = srv.do(t, http.MethodGet, "/api/v1/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	decode(t, rec, &board)
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, uint(20), board.Leaderboard[0].UserID)
	assert.Equal(t, "User 20", board.Leaderboard[0].Name)
	assert.Equal(t, "/api/v1/users/20/avatar", board.Leaderboard[0].AvatarURL)

	rec = srv.do(t, http.MethodGet, board.Leaderboard[0].AvatarURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestHandlersRejectBadInput(t *testing.T) {
	srv := newTestServer(t)
	learner := token(t, 30, "learner")

	rec := srv.do(t, http.MethodGet, "/api/v1/courses/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/lessons/999/complete", learner, gin.H{"time_spent": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/leaderboard?limit=ten", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/admin/stats", token(t, 40, "instructor"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/admin/stats", token(t, 1, "admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Stats models.PlatformStatistics `json:"stats"`
	}
	decode(t, rec, &body)
	assert.Equal(t, int64(2), body.Stats.TotalUsers)
}

func TestStoredRoleOverridesTokenRole(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.store.Repositories().Users.Upsert(&models.User{ID: 50, Name: "Demoted", Role: "learner"}))

	rec := srv.do(t, http.MethodGet, "/api/v1/admin/stats", token(t, 50, "admin"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStoredRoleAppliesToPublicReads(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.store.Repositories().Users.Upsert(&models.User{ID: 60, Name: "Former admin", Role: "learner"}))

	rec := srv.do(t, http.MethodPost, "/api/v1/courses", token(t, 10, "instructor"), gin.H{"title": "Draft Staking"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Course models.Course `json:"course"`
	}
	decode(t, rec, &created)
	path := fmt.Sprintf("/api/v1/courses/%d", created.Course.ID)

	rec = srv.do(t, http.MethodGet, path, token(t, 60, "admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, path, token(t, 61, "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code, "a stored admin still sees drafts")
}

func TestAvatarRoute(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.store.Repositories().Users.Upsert(&models.User{ID: 70, Name: "Satoshi", AvatarURL: "https://cdn.example.com/s.png", Role: "learner"}))

	rec := srv.do(t, http.MethodGet, "/api/v1/users/70/avatar", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://cdn.example.com/s.png", rec.Header().Get("Location"))

	rec = srv.do(t, http.MethodGet, "/api/v1/users/71/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
