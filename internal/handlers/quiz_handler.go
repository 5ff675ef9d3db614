package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
)

type QuizHandler struct {
	quizService *service.QuizService
}

func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (h *QuizHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.quizService == nil {
		unavailable(c, "quiz")
		return false
	}
	return true
}

func (h *QuizHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	lessonID, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetQuiz(middleware.ActorFromContext(c), lessonID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (h *QuizHandler) Upsert(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	lessonID, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	var req models.UpsertQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.UpsertQuiz(middleware.ActorFromContext(c), lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

func (h *QuizHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	lessonID, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	if err := h.quizService.DeleteQuiz(middleware.ActorFromContext(c), lessonID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quiz deleted"})
}

func (h *QuizHandler) Submit(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	lessonID, ok := parseUintParam(c, "id", "lesson")
	if !ok {
		return
	}

	var req models.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.quizService.SubmitQuiz(c.Request.Context(), middleware.ActorFromContext(c), lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
