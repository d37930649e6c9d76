package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/service"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

// SubmissionHandler exposes the student-facing endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
	metrics *service.MetricsService
}

// NewSubmissionHandler creates a new handler.
func NewSubmissionHandler(svc *service.SubmissionService, metrics *service.MetricsService) *SubmissionHandler {
	return &SubmissionHandler{service: svc, metrics: metrics}
}

// ListAssignments returns the assignments visible to the caller with derived
// submission status.
func (h *SubmissionHandler) ListAssignments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	assignments, err := h.service.ListVisible(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"assignments": assignments})
}

// Submit uploads the caller's file against an assignment, replacing any
// previous submission in place.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	submission, err := h.service.Submit(c.Request.Context(), claims.UserID, c.Param("id"), file, fileHeader.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordUpload()

	response.JSON(c, http.StatusOK, gin.H{"submission": submission})
}

// Edit replaces the caller's existing submission before the due date.
func (h *SubmissionHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	assignment, err := h.service.Edit(c.Request.Context(), claims.UserID, c.Param("id"), file, fileHeader.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordUpload()

	response.JSON(c, http.StatusOK, gin.H{"assignment": assignment})
}
