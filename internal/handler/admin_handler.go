package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/service"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

// AdminHandler exposes the admin provisioning endpoints.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// RegisterTeacher provisions a teacher account with its student roster.
func (h *AdminHandler) RegisterTeacher(c *gin.Context) {
	var req service.RegisterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	teacher, err := h.service.RegisterTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"teacher": teacher})
}

// ListTeachers returns all teachers with their rosters expanded.
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"teachers": teachers})
}

// ListStudents returns every student reference for roster selection.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.service.ListStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"students": students})
}

// DeleteTeacher removes a teacher and everything it owns.
func (h *AdminHandler) DeleteTeacher(c *gin.Context) {
	if err := h.service.DeleteTeacher(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "teacher deleted")
}
