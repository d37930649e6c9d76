package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/assignment-portal-api/internal/service"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Signup registers a student account pending OTP verification.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"message": "account created, verify the code sent to your email",
		"user":    user,
	})
}

// IssueOTP re-sends a verification code for a pending account.
func (h *AuthHandler) IssueOTP(c *gin.Context) {
	var req service.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid otp payload"))
		return
	}

	if err := h.service.IssueOTP(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "verification code sent")
}

// VerifyOTP confirms a pending account and returns a bearer token.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req service.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid otp payload"))
		return
	}

	res, err := h.service.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Login authenticates by email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}

// Verify resolves the bearer token to the persisted identity behind it.
func (h *AuthHandler) Verify(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
		return
	}

	identity, err := h.service.Identify(c.Request.Context(), parts[1])
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, identity)
}
