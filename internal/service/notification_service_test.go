package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *captureMailer) Send(to, subject, htmlBody string) error {
	m.to = to
	m.subject = subject
	m.body = htmlBody
	return m.err
}

func TestNotificationEmbedsOneTimeCode(t *testing.T) {
	mail := &captureMailer{}
	svc := NewNotificationService(mail, testLogger())

	err := svc.SendOneTimeCode("member@example.com", "Ana", "482913")
	require.NoError(t, err)
	require.Equal(t, "member@example.com", mail.to)
	require.Contains(t, mail.body, "482913")
	require.Contains(t, mail.subject, "One-Time Login Code")
}

func TestNotificationEmbedsResetLink(t *testing.T) {
	mail := &captureMailer{}
	svc := NewNotificationService(mail, testLogger())

	resetURL := "http://app.local/#/reset-password?token=abc"
	err := svc.SendPasswordResetLink("member@example.com", "Ana", resetURL)
	require.NoError(t, err)
	require.Contains(t, mail.body, resetURL)
}

func TestNotificationSanitizesNames(t *testing.T) {
	mail := &captureMailer{}
	svc := NewNotificationService(mail, testLogger())

	err := svc.SendRegistrationReceived("member@example.com", `<script>alert(1)</script>Ana`)
	require.NoError(t, err)
	require.NotContains(t, mail.body, "<script>")
	require.Contains(t, mail.body, "Ana")
}

func TestNotificationRejectionCarriesReason(t *testing.T) {
	mail := &captureMailer{}
	svc := NewNotificationService(mail, testLogger())

	err := svc.SendApplicationRejected("member@example.com", "Ana", "incomplete documents")
	require.NoError(t, err)
	require.Contains(t, mail.body, "incomplete documents")
}
