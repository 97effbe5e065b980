package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay. Credentials are optional;
// without them it sends unauthenticated (Mailpit, local relays).
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	host := strings.TrimSpace(cfg.Host)
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@salon.local"
	}
	s := &SMTPSender{
		addr: net.JoinHostPort(host, strings.TrimSpace(cfg.Port)),
		host: host,
		from: from,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return s
}

// Send honours ctx only up to the point where the message is handed to
// net/smtp, which has no context support.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, to, subject, body, time.Now())
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string, at time.Time) string {
	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		sanitizeHeader(subject),
		at.Format(time.RFC1123Z),
		body,
	)
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogEmailSender writes messages to the log instead of sending them.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s LogEmailSender) Send(ctx context.Context, to, subject, _ string) error {
	s.Logger.InfoContext(ctx, "email suppressed", "to", to, "subject", subject)
	return nil
}
