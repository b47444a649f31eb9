package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPSender delivers mail over authenticated SMTP with STARTTLS. It is
// the fallback when SendGrid is unavailable or unconfigured.
type SMTPSender struct {
	host     string
	port     int
	password string
}

// NewSMTPSender creates an SMTP sender. The sender address doubles as
// the SMTP username (Gmail app-password style).
func NewSMTPSender(host string, port int, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, password: password}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send implements Sender. smtp.SendMail negotiates STARTTLS when the
// server offers it. net/smtp does not accept a context, so only the
// pre-dial cancellation check honors ctx.
func (s *SMTPSender) Send(ctx context.Context, from, to, subject, body string) error {
	if s.password == "" {
		return fmt.Errorf("smtp password not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", from, s.password, s.host)

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
