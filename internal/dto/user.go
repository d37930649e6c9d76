package dto

import (
	"time"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// TeacherView is the admin-facing teacher payload with its roster expanded.
type TeacherView struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Course           *string          `json:"course,omitempty"`
	Timing           *string          `json:"timing,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	AssignedStudents []models.UserRef `json:"assignedStudents"`
}

// Identity is what GET /verify returns: the token owner as persisted.
type Identity struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// TokenResponse carries an issued bearer token and its owner.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Identity  `json:"user"`
}
