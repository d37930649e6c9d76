package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/pkg/config"
)

// Mailer delivers one-time verification codes.
type Mailer interface {
	SendOTP(ctx context.Context, toName, toEmail, code string) error
}

// SendGridMailer delivers OTP mail through the SendGrid v3 API.
type SendGridMailer struct {
	key  string
	from *sgmail.Email
}

// NewSendGrid builds a SendGrid-backed mailer.
func NewSendGrid(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		key:  cfg.SendGridKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendGridMailer) SendOTP(ctx context.Context, toName, toEmail, code string) error {
	subject := "Your verification code"
	plain := fmt.Sprintf("Your verification code is %s. It expires shortly.", code)
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires shortly.</p>", code)

	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), plain, html)
	client := sendgrid.NewSendClient(m.key)

	res, err := client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send otp mail: status %d", res.StatusCode)
	}
	return nil
}

// ConsoleMailer logs codes instead of sending mail. Used when no SendGrid key
// is configured (local development).
type ConsoleMailer struct {
	logger *zap.Logger
}

func NewConsole(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

func (m *ConsoleMailer) SendOTP(ctx context.Context, toName, toEmail, code string) error {
	m.logger.Info("otp issued",
		zap.String("to", toEmail),
		zap.String("code", code),
	)
	return nil
}
