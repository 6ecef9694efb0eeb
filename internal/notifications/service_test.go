package notifications

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"callspool/internal/config"
)

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.SMTPHost = ""
	svc := NewService(&cfg)
	if err := svc.NotifyRecoverySummary(context.Background(), "summary", nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
}

func TestNewServiceRequiresRecipients(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.SMTPHost = "mail.example.test"
	cfg.Notifications.Recipients = nil
	if _, ok := NewService(&cfg).(noopService); !ok {
		t.Fatal("expected noop service without recipients")
	}
}

func captureService(t *testing.T, captured *[]byte, to *[]string) *smtpService {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.SMTPHost = "mail.example.test"
	cfg.Notifications.From = "callspool@example.test"
	cfg.Notifications.Recipients = []string{"ops@example.test"}
	svc, ok := NewService(&cfg).(*smtpService)
	if !ok {
		t.Fatal("expected smtp service")
	}
	svc.sendMail = func(addr string, auth smtp.Auth, from string, rcpt []string, msg []byte) error {
		*captured = msg
		*to = rcpt
		return nil
	}
	return svc
}

func TestRecoverySummaryMail(t *testing.T) {
	var msg []byte
	var to []string
	svc := captureService(t, &msg, &to)

	details := []string{"rec-1: moved error -> source", "rec-2: row missing"}
	if err := svc.NotifyRecoverySummary(context.Background(), "recovered 1, failed 1 in 2s", details); err != nil {
		t.Fatalf("NotifyRecoverySummary: %v", err)
	}
	if len(to) != 1 || to[0] != "ops@example.test" {
		t.Fatalf("recipients = %v", to)
	}
	text := string(msg)
	if !strings.Contains(text, "Subject: callspool - Recovery Summary") {
		t.Fatalf("subject missing: %q", text)
	}
	for _, want := range append(details, "recovered 1, failed 1 in 2s") {
		if !strings.Contains(text, want) {
			t.Fatalf("body missing %q: %q", want, text)
		}
	}
}

func TestAuditFindingsMail(t *testing.T) {
	var msg []byte
	var to []string
	svc := captureService(t, &msg, &to)

	if err := svc.NotifyAuditFindings(context.Background(), 2, []string{"rec-9: GPT-4o-mini APIエラー"}); err != nil {
		t.Fatalf("NotifyAuditFindings: %v", err)
	}
	text := string(msg)
	if !strings.Contains(text, "Subject: callspool - Audit Findings") {
		t.Fatalf("subject missing: %q", text)
	}
	if !strings.Contains(text, "detected: 2") || !strings.Contains(text, "GPT-4o-mini APIエラー") {
		t.Fatalf("body = %q", text)
	}
}
