package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
)

type ForumHandler struct {
	forumService *service.ForumService
}

func NewForumHandler(forumService *service.ForumService) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

func (h *ForumHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.forumService == nil {
		unavailable(c, "forum")
		return false
	}
	return true
}

func (h *ForumHandler) ListThreads(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	page, limit := parsePagination(c, 20)
	opts := service.ThreadListOptions{Search: c.Query("search")}
	if raw := c.Query("course_id"); raw != "" {
		courseID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}
		id := uint(courseID)
		opts.CourseID = &id
	}

	threads, total, err := h.forumService.ListThreads(page, limit, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"threads": threads,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *ForumHandler) GetThread(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "thread")
	if !ok {
		return
	}

	thread, err := h.forumService.GetThread(id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

func (h *ForumHandler) CreateThread(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateForumThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.forumService.CreateThread(middleware.ActorFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"thread": thread})
}

func (h *ForumHandler) UpdateThread(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "thread")
	if !ok {
		return
	}

	var req models.UpdateForumThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.forumService.UpdateThread(middleware.ActorFromContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

func (h *ForumHandler) DeleteThread(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "thread")
	if !ok {
		return
	}

	if err := h.forumService.DeleteThread(middleware.ActorFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "thread deleted"})
}

func (h *ForumHandler) Vote(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "thread")
	if !ok {
		return
	}

	var req models.ForumVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.forumService.Vote(middleware.ActorFromContext(c), id, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

func (h *ForumHandler) CreateReply(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	threadID, ok := parseUintParam(c, "id", "thread")
	if !ok {
		return
	}

	var req models.ForumReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.forumService.CreateReply(middleware.ActorFromContext(c), threadID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reply": reply})
}

func (h *ForumHandler) UpdateReply(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "reply")
	if !ok {
		return
	}

	var req models.ForumReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.forumService.UpdateReply(middleware.ActorFromContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *ForumHandler) DeleteReply(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "reply")
	if !ok {
		return
	}

	if err := h.forumService.DeleteReply(middleware.ActorFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reply deleted"})
}
