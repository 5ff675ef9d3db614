package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/service"
)

// LearnerHandler serves the caller's own profile, statistics and
// achievements together with the public leaderboard.
type LearnerHandler struct {
	users        *service.UserService
	stats        *service.StatsService
	achievements *service.AchievementService
	leaderboard  *service.LeaderboardService
	avatars      *service.AvatarService
}

func NewLearnerHandler(users *service.UserService, stats *service.StatsService, achievements *service.AchievementService, leaderboard *service.LeaderboardService, avatars *service.AvatarService) *LearnerHandler {
	return &LearnerHandler{
		users:        users,
		stats:        stats,
		achievements: achievements,
		leaderboard:  leaderboard,
		avatars:      avatars,
	}
}

func (h *LearnerHandler) Profile(c *gin.Context) {
	if h == nil || h.users == nil {
		unavailable(c, "user")
		return
	}

	user, err := h.users.GetProfile(middleware.ActorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *LearnerHandler) Stats(c *gin.Context) {
	if h == nil || h.stats == nil {
		unavailable(c, "statistics")
		return
	}

	stats, err := h.stats.GetForUser(middleware.ActorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *LearnerHandler) Achievements(c *gin.Context) {
	if h == nil || h.achievements == nil {
		unavailable(c, "achievement")
		return
	}

	achievements, err := h.achievements.ListForUser(middleware.ActorFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

func (h *LearnerHandler) Leaderboard(c *gin.Context) {
	if h == nil || h.leaderboard == nil {
		unavailable(c, "leaderboard")
		return
	}

	limitStr := c.DefaultQuery("limit", strconv.Itoa(service.DefaultLeaderboardLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	entries, err := h.leaderboard.Top(limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// Avatar redirects to the user's own picture or serves a generated one.
func (h *LearnerHandler) Avatar(c *gin.Context) {
	if h == nil || h.users == nil || h.avatars == nil {
		unavailable(c, "avatar")
		return
	}

	id, ok := parseUintParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := h.users.GetUser(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if user.AvatarURL != "" {
		c.Redirect(http.StatusFound, user.AvatarURL)
		return
	}

	img, err := h.avatars.InitialAvatar(user.DisplayName())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", img)
}
