package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRepository keeps pending verification codes in Redis. Codes expire on
// their own; there is no separate cleanup path.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs an OTPRepository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

// Save stores a code for the email with the given TTL, replacing any
// previous code.
func (r *OTPRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, otpKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// Get returns the pending code for the email. A missing or expired code
// yields sql.ErrNoRows so callers can treat it like any absent record.
func (r *OTPRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("load otp: %w", err)
	}
	return code, nil
}

// Delete drops the pending code after a successful verification.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
