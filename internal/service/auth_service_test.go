package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
)

type mockAuthUsers struct {
	items    map[string]*models.User
	byEmail  map[string]string
	verified []string
}

func (m *mockAuthUsers) Create(ctx context.Context, user *models.User) error {
	if m.items == nil {
		m.items = make(map[string]*models.User)
		m.byEmail = make(map[string]string)
	}
	if user.ID == "" {
		user.ID = "generated"
	}
	cp := *user
	m.items[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		cp := *m.items[id]
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.items[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockAuthUsers) MarkVerified(ctx context.Context, id string) error {
	m.verified = append(m.verified, id)
	if user, ok := m.items[id]; ok {
		user.Verified = true
	}
	return nil
}

type mockOTPs struct {
	codes map[string]string
}

func (m *mockOTPs) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[email] = code
	return nil
}

func (m *mockOTPs) Get(ctx context.Context, email string) (string, error) {
	if code, ok := m.codes[email]; ok {
		return code, nil
	}
	return "", sql.ErrNoRows
}

func (m *mockOTPs) Delete(ctx context.Context, email string) error {
	delete(m.codes, email)
	return nil
}

type recordMailer struct {
	sent []string
}

func (m *recordMailer) SendOTP(ctx context.Context, toName, toEmail, code string) error {
	m.sent = append(m.sent, toEmail)
	return nil
}

func newAuthService(users *mockAuthUsers, otps *mockOTPs, mail *recordMailer) *AuthService {
	return NewAuthService(users, otps, mail, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "test",
	})
}

func TestAuthServiceSignup(t *testing.T) {
	users := &mockAuthUsers{}
	otps := &mockOTPs{}
	mail := &recordMailer{}
	svc := newAuthService(users, otps, mail)

	user, err := svc.Signup(context.Background(), SignupRequest{
		Name:     "Student A",
		Email:    "A@Example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.False(t, user.Verified)
	assert.Equal(t, "a@example.com", user.Email)
	assert.Contains(t, otps.codes, "a@example.com")
	assert.Equal(t, []string{"a@example.com"}, mail.sent)
}

func TestAuthServiceSignupDuplicateEmail(t *testing.T) {
	users := &mockAuthUsers{}
	svc := newAuthService(users, &mockOTPs{}, &recordMailer{})

	_, err := svc.Signup(context.Background(), SignupRequest{Name: "A", Email: "a@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), SignupRequest{Name: "B", Email: "a@example.com", Password: "supersecret"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestAuthServiceVerifyOTP(t *testing.T) {
	users := &mockAuthUsers{}
	otps := &mockOTPs{}
	svc := newAuthService(users, otps, &recordMailer{})

	_, err := svc.Signup(context.Background(), SignupRequest{Name: "A", Email: "a@example.com", Password: "supersecret"})
	require.NoError(t, err)

	res, err := svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@example.com", OTP: otps.codes["a@example.com"]})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.NotContains(t, otps.codes, "a@example.com")
	assert.Len(t, users.verified, 1)
}

func TestAuthServiceVerifyOTPWrongCode(t *testing.T) {
	users := &mockAuthUsers{}
	otps := &mockOTPs{}
	svc := newAuthService(users, otps, &recordMailer{})

	_, err := svc.Signup(context.Background(), SignupRequest{Name: "A", Email: "a@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.VerifyOTP(context.Background(), VerifyOTPRequest{Email: "a@example.com", OTP: "000000x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, users.verified)
}

func TestAuthServiceLoginUnverified(t *testing.T) {
	users := &mockAuthUsers{}
	svc := newAuthService(users, &mockOTPs{}, &recordMailer{})

	_, err := svc.Signup(context.Background(), SignupRequest{Name: "A", Email: "a@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "supersecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnverifiedAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPasswordIsMasked(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &mockAuthUsers{}
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID: "u1", Name: "A", Email: "a@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, Verified: true,
	}))
	svc := newAuthService(users, &mockOTPs{}, &recordMailer{})

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "wrongpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	// Unknown account produces the same error as a bad password.
	_, err = svc.Login(context.Background(), LoginRequest{Email: "missing@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceIdentifyDeletedAccount(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &mockAuthUsers{}
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID: "u1", Name: "A", Email: "a@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, Verified: true,
	}))
	svc := newAuthService(users, &mockOTPs{}, &recordMailer{})

	res, err := svc.Login(context.Background(), LoginRequest{Email: "a@example.com", Password: "rightpassword"})
	require.NoError(t, err)

	identity, err := svc.Identify(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)

	// The token stays valid, but once the row is gone the identity is too.
	delete(users.items, "u1")
	delete(users.byEmail, "a@example.com")
	_, err = svc.Identify(context.Background(), res.Token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(&mockAuthUsers{}, &mockOTPs{}, &recordMailer{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}
