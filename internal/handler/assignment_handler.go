package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/service"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

// AssignmentHandler exposes the teacher-facing assignment endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
	metrics *service.MetricsService
}

// NewAssignmentHandler creates a new handler.
func NewAssignmentHandler(svc *service.AssignmentService, metrics *service.MetricsService) *AssignmentHandler {
	return &AssignmentHandler{service: svc, metrics: metrics}
}

// Create publishes a new assignment owned by the caller.
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"assignment": assignment})
}

// List returns the caller's assignments with submissions expanded.
func (h *AssignmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	assignments, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"assignments": assignments})
}

// Update applies partial changes to an owned assignment.
func (h *AssignmentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"assignment": assignment})
}

// Delete removes an owned assignment and its submissions.
func (h *AssignmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "assignment deleted")
}

// ListSubmissions returns an owned assignment's submissions.
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissions, err := h.service.ListSubmissions(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"submissions": submissions})
}

// Grade assigns a mark to a submission located by its own id.
func (h *AssignmentHandler) Grade(c *gin.Context) {
	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	assignment, err := h.service.Grade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordGrade()

	response.JSON(c, http.StatusOK, gin.H{"assignment": assignment})
}
