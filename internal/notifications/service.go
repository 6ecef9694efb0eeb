package notifications

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"callspool/internal/config"
)

// Service defines the notification surface exposed to the recovery and audit
// components.
type Service interface {
	NotifyRecoverySummary(ctx context.Context, summary string, details []string) error
	NotifyAuditFindings(ctx context.Context, flagged int, details []string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by SMTP when configured.
// When no SMTP host or recipients are configured, a noop implementation is
// returned.
func NewService(cfg *config.Config) Service {
	host := strings.TrimSpace(cfg.Notifications.SMTPHost)
	if host == "" || len(cfg.Notifications.Recipients) == 0 {
		return noopService{}
	}

	port := cfg.Notifications.SMTPPort
	if port <= 0 {
		port = 587
	}
	from := strings.TrimSpace(cfg.Notifications.From)
	if from == "" {
		from = cfg.Notifications.SMTPUsername
	}

	return &smtpService{
		addr:       net.JoinHostPort(host, strconv.Itoa(port)),
		host:       host,
		username:   strings.TrimSpace(cfg.Notifications.SMTPUsername),
		password:   cfg.Notifications.SMTPPassword,
		from:       from,
		recipients: cfg.Notifications.Recipients,
		sendMail:   smtp.SendMail,
	}
}

type smtpService struct {
	addr       string
	host       string
	username   string
	password   string
	from       string
	recipients []string

	// sendMail is swappable so tests can capture the outbound message.
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func (s *smtpService) NotifyRecoverySummary(ctx context.Context, summary string, details []string) error {
	body := strings.TrimSpace(summary)
	if len(details) > 0 {
		body += "\n\n" + strings.Join(details, "\n")
	}
	return s.send(ctx, "callspool - Recovery Summary", body)
}

func (s *smtpService) NotifyAuditFindings(ctx context.Context, flagged int, details []string) error {
	body := fmt.Sprintf("Partial transcription failures detected: %d", flagged)
	if len(details) > 0 {
		body += "\n\n" + strings.Join(details, "\n")
	}
	return s.send(ctx, "callspool - Audit Findings", body)
}

func (s *smtpService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return s.send(ctx, "callspool - Error", builder.String())
}

func (s *smtpService) TestNotification(ctx context.Context) error {
	return s.send(ctx, "callspool - Test", "Notification system test")
}

func (s *smtpService) send(ctx context.Context, subject, body string) error {
	if s == nil || s.sendMail == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.from + "\r\n")
	msg.WriteString("To: " + strings.Join(s.recipients, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := s.sendMail(s.addr, auth, s.from, s.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyRecoverySummary(context.Context, string, []string) error { return nil }
func (noopService) NotifyAuditFindings(context.Context, int, []string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
