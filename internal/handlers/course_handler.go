package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
)

type CourseHandler struct {
	courseService *service.CourseService
}

func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

func (h *CourseHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.courseService == nil {
		unavailable(c, "course")
		return false
	}
	return true
}

func (h *CourseHandler) List(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	query := service.CourseQuery{
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Search:   c.Query("search"),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		query.Offset = offset
	}

	courses, err := h.courseService.ListCourses(middleware.ActorFromContext(c), query)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	course, err := h.courseService.GetCourse(middleware.ActorFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Create(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.CreateCourse(middleware.ActorFromContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) Update(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.UpdateCourse(middleware.ActorFromContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	if err := h.courseService.DeleteCourse(middleware.ActorFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course deleted"})
}

func (h *CourseHandler) Publish(c *gin.Context) {
	h.setPublished(c, true)
}

func (h *CourseHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *CourseHandler) setPublished(c *gin.Context, published bool) {
	if !h.ensureService(c) {
		return
	}

	id, ok := parseUintParam(c, "id", "course")
	if !ok {
		return
	}

	course, err := h.courseService.SetPublished(middleware.ActorFromContext(c), id, published)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}
