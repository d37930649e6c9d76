package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/service"
)

type stubRoleSource struct {
	users map[string]*models.User
}

func (s *stubRoleSource) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func runGate(t *testing.T, gate gin.HandlerFunc, claims *models.JWTClaims) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/assignments", nil)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	gate(c)
	return w, c
}

func TestRequireRolesAllows(t *testing.T) {
	users := &stubRoleSource{users: map[string]*models.User{
		"t1": {ID: "t1", Role: models.RoleTeacher},
	}}
	gate := RequireRoles(users, models.RoleTeacher)

	w, c := runGate(t, gate, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})
	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesUsesPersistedRole(t *testing.T) {
	// The token claims teacher, but the stored row says student. The stored
	// role wins.
	users := &stubRoleSource{users: map[string]*models.User{
		"u1": {ID: "u1", Role: models.RoleStudent},
	}}
	gate := RequireRoles(users, models.RoleTeacher)

	w, c := runGate(t, gate, &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesDeletedAccount(t *testing.T) {
	gate := RequireRoles(&stubRoleSource{}, models.RoleTeacher)

	w, c := runGate(t, gate, &models.JWTClaims{UserID: "gone", Role: models.RoleTeacher})
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesNoClaims(t *testing.T) {
	gate := RequireRoles(&stubRoleSource{}, models.RoleTeacher)

	w, c := runGate(t, gate, nil)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type stubAuthUsers struct{}

func (stubAuthUsers) Create(ctx context.Context, user *models.User) error { return nil }
func (stubAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubAuthUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return false, nil
}
func (stubAuthUsers) MarkVerified(ctx context.Context, id string) error { return nil }

type stubOTPStore struct{}

func (stubOTPStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	return nil
}
func (stubOTPStore) Get(ctx context.Context, email string) (string, error) {
	return "", sql.ErrNoRows
}
func (stubOTPStore) Delete(ctx context.Context, email string) error { return nil }

type noopMailer struct{}

func (noopMailer) SendOTP(ctx context.Context, toName, toEmail, code string) error { return nil }

func TestJWTMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(stubAuthUsers{}, stubOTPStore{}, noopMailer{}, validator.New(), zap.NewNop(), service.AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
	})
	guard := JWT(authSvc)

	for _, header := range []string{"", "Token abc", "Bearer not-a-token"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req, _ := http.NewRequest(http.MethodGet, "/assignments", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		c.Request = req

		guard(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
