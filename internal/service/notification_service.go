package service

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/kopma-dev/kopma-api/pkg/mailer"
)

// NotificationService builds and dispatches the transactional emails sent
// around the membership lifecycle. Callers decide whether a delivery failure
// is fatal: registration and review notifications are best-effort, while the
// reset and OTP flows are useless without the email and surface the error.
type NotificationService interface {
	SendRegistrationReceived(to, name string) error
	SendApplicationApproved(to, name string) error
	SendApplicationRejected(to, name, reason string) error
	SendPasswordResetLink(to, name, resetURL string) error
	SendOneTimeCode(to, name, code string) error
}

type notificationService struct {
	mailer    mailer.Mailer
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewNotificationService constructs the notification dispatcher.
func NewNotificationService(m mailer.Mailer, logger zerolog.Logger) NotificationService {
	return &notificationService{
		mailer:    m,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) SendRegistrationReceived(to, name string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #2c5530;">Student Cooperative</h2>
			<h3>Registration Received</h3>
			<p>Hello %s,</p>
			<p>Thank you for registering as a member of the student cooperative.</p>
			<p>Your application has been received and is being verified by the review team.</p>
			<p>We will email you once the review is complete.</p>
			<p><strong>The Cooperative Team</strong></p>
		</div>`, s.sanitizer.Sanitize(name))

	return s.mailer.Send(to, "Registration Received - Awaiting Approval", body)
}

func (s *notificationService) SendApplicationApproved(to, name string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #2c5530;">Student Cooperative</h2>
			<h3 style="color: #28a745;">Application Approved</h3>
			<p>Hello %s,</p>
			<p>Congratulations, your membership application has been <strong>APPROVED</strong>.</p>
			<p>You can now log in and use all member services.</p>
			<p><strong>The Cooperative Team</strong></p>
		</div>`, s.sanitizer.Sanitize(name))

	return s.mailer.Send(to, "Congratulations! Your Application Was Approved", body)
}

func (s *notificationService) SendApplicationRejected(to, name, reason string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #2c5530;">Student Cooperative</h2>
			<h3 style="color: #dc3545;">Application Not Approved</h3>
			<p>Hello %s,</p>
			<p>We are sorry, your membership application could not be approved.</p>
			<p><strong>Reason:</strong> %s</p>
			<p>You may register again once the requirements are met.</p>
			<p><strong>The Cooperative Team</strong></p>
		</div>`, s.sanitizer.Sanitize(name), s.sanitizer.Sanitize(reason))

	return s.mailer.Send(to, "Application Status Notification", body)
}

func (s *notificationService) SendPasswordResetLink(to, name, resetURL string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #2c5530;">Student Cooperative</h2>
			<h3>Reset Password</h3>
			<p>Hello %s,</p>
			<p>You requested a password reset for your cooperative account.</p>
			<div style="text-align: center;">
				<a href="%s" style="background-color: #2c5530; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
			</div>
			<p>The link is valid for 10 minutes. If you did not request a reset, ignore this email.</p>
			<p><strong>The Cooperative Team</strong></p>
		</div>`, s.sanitizer.Sanitize(name), resetURL)

	return s.mailer.Send(to, "Reset Password - Student Cooperative", body)
}

func (s *notificationService) SendOneTimeCode(to, name, code string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #2c5530;">Student Cooperative</h2>
			<p>Hello %s,</p>
			<p>Here is your one-time login code. It is valid for 5 minutes.</p>
			<div style="font-size: 28px; font-weight: bold; letter-spacing: 4px; padding: 12px 20px; background:#f3f4f6; display:inline-block; border-radius:8px;">%s</div>
			<p style="margin-top:16px;">Enter this code on the code login page.</p>
		</div>`, s.sanitizer.Sanitize(name), code)

	return s.mailer.Send(to, "One-Time Login Code - Student Cooperative", body)
}
