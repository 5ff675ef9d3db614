package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
)

type LessonHandler struct {
	lessonService   *service.LessonService
	progressService *service.ProgressService
}

func NewLessonHandler(lessonService *service.LessonService, progressService *service.ProgressService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService, progressService: progressService}
}

func (h *LessonHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.lessonService == nil {
		unavailable(c, "lesson")
		return false
	}
	return true
}

func (h *LessonHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	lesson, err := h.lessonService.GetLesson(middleware.ActorFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

// Complete runs the completion pipeline for the caller.
func (h *LessonHandler) Complete(c *gin.Context) {
	if h == nil || h.progressService == nil {
		unavailable(c, "progress")
		return
	}

	id, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	var req models.CompleteLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.progressService.CompleteLesson(c.Request.Context(), middleware.ActorFromContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *LessonHandler) Create(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	var req models.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.CreateLesson(middleware.ActorFromContext(c), courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Update(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	var req models.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.UpdateLesson(middleware.ActorFromContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	if err := h.lessonService.DeleteLesson(middleware.ActorFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "lesson deleted"})
}

func (h *LessonHandler) Reorder(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courseID, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	var req models.ReorderLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lessons, err := h.lessonService.ReorderLessons(middleware.ActorFromContext(c), courseID, req.LessonIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}
