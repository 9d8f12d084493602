// Package mail sends the console's transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"lmsadmin/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer delivers account email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>We received a request to reset the password of your LMS admin account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link expires in 15 minutes. If you did not ask for a reset you can ignore this email.</p>
`))

const resetSubject = "Reset your password"

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func NewSMTPMailer(cfg *config.Config, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
		logger: logger.With().Str("service", "SMTPMailer").Logger(),
	}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	msg, err := buildResetMessage(m.from, to, name, link)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error().Err(err).Str("to", to).Msg("Failed to send password reset email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info().Str("to", to).Msg("Password reset email sent")
	return nil
}

func buildResetMessage(from, to, name, link string) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, Link string }{name, link}); err != nil {
		return nil, fmt.Errorf("failed to render reset email: %w", err)
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}

// LogMailer logs messages instead of sending them. It is used when no SMTP
// host is configured.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("service", "LogMailer").Logger()}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	m.logger.Info().Str("to", to).Str("link", link).Msg("Password reset email (not sent, SMTP disabled)")
	return nil
}
