package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Mailer sends account-related mail. The production implementation is
// backed by Resend; tests substitute a recording fake.
type Mailer interface {
	SendVerificationEmail(to, name, verifyURL string) error
}

type EmailService struct {
	client    *resend.Client
	fromEmail string
	appName   string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appName:   appName,
		isDev:     isDev,
	}
}

func (s *EmailService) SendVerificationEmail(to, name, verifyURL string) error {
	subject, body := verificationEmailTemplate(name, verifyURL, s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "email_verify", "to", to, "subject", subject, "url", verifyURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", "email_verify", "to", to)
	}
	return err
}
