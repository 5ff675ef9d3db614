package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/models"
	"cryptoacademy-backend/internal/service"
)

type AdminHandler struct {
	adminService  *service.AdminService
	courseService *service.CourseService
}

func NewAdminHandler(adminService *service.AdminService, courseService *service.CourseService) *AdminHandler {
	return &AdminHandler{adminService: adminService, courseService: courseService}
}

// adminContext returns the capability issued by AdminMiddleware and writes a
// response when it is missing.
func (h *AdminHandler) adminContext(c *gin.Context) (authorization.AdminContext, bool) {
	if h == nil || h.adminService == nil {
		unavailable(c, "admin")
		return authorization.AdminContext{}, false
	}
	admin, ok := middleware.AdminContextFromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": authorization.ErrNotAdmin.Error()})
		return authorization.AdminContext{}, false
	}
	return admin, true
}

func (h *AdminHandler) Stats(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	stats, err := h.adminService.Stats(admin)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c, 50)
	users, total, err := h.adminService.ListUsers(admin, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	id, ok := parseUintParam(c, "id", "user")
	if !ok {
		return
	}

	var req models.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.adminService.UpdateUserRole(admin, id, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	id, ok := parseUintParam(c, "id", "user")
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), admin, id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *AdminHandler) ListCourses(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}
	if h.courseService == nil {
		unavailable(c, "course")
		return
	}

	courses, err := h.courseService.ListAll(admin)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *AdminHandler) ReconcileLessons(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	if err := h.adminService.ReconcileLessons(admin); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "lesson count reconciliation scheduled"})
}

func (h *AdminHandler) FlushCache(c *gin.Context) {
	admin, ok := h.adminContext(c)
	if !ok {
		return
	}

	if err := h.adminService.FlushCache(admin); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cache flushed"})
}
