// Package mailer delivers HTML email over SMTP.
package mailer

import (
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends a single HTML message to one recipient.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Config holds the SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a plain SMTP dialer.
type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
}

// New constructs an SMTP-backed mailer.
func New(cfg Config, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("component", "mailer").Logger(),
	}
}

// Send dials the configured SMTP server and delivers the message. Each call
// opens its own connection.
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Error().Err(err).Str("to", to).Msg("failed to send email")
		return err
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
