package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// UserRepository manages persistence for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, name, email, password_hash, role, course, timing, verified, created_at, updated_at"

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, name, email, password_hash, role, course, timing, verified, created_at, updated_at)
		VALUES (:id, :name, :email, :password_hash, :role, :course, :timing, :verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE LOWER(email) = LOWER($1)", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks whether any user already uses the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user email: %w", err)
	}
	return true, nil
}

// MarkVerified flips the verified flag after a successful OTP check.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET verified = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return nil
}

// ListByRole returns all users holding the given role, newest first.
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE role = $1 ORDER BY created_at DESC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// ListRefsByRole returns id/name/email projections for all users of a role.
func (r *UserRepository) ListRefsByRole(ctx context.Context, role models.Role) ([]models.UserRef, error) {
	const query = `SELECT id, name, email FROM users WHERE role = $1 ORDER BY name ASC`
	var refs []models.UserRef
	if err := r.db.SelectContext(ctx, &refs, query, role); err != nil {
		return nil, fmt.Errorf("list user refs: %w", err)
	}
	return refs, nil
}

// Delete removes a user row. Dependent assignments, submissions and roster
// rows go with it via ON DELETE CASCADE. Returns sql.ErrNoRows when no row
// matched the id/role pair.
func (r *UserRepository) Delete(ctx context.Context, id string, role models.Role) error {
	const query = `DELETE FROM users WHERE id = $1 AND role = $2`
	res, err := r.db.ExecContext(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
