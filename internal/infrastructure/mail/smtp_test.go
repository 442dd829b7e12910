package mail

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

func TestSMTPSender_ComposeHeaders(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@bottlerun.app"})

	raw := string(s.compose(domain.Mail{To: "ana@example.com", Subject: "Verify", Body: "line1\nline2"}))

	for _, want := range []string{
		"From: noreply@bottlerun.app\r\n",
		"To: ana@example.com\r\n",
		"Subject: Verify\r\n",
		"\r\n\r\nline1\r\nline2",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected message to contain %q, got %q", want, raw)
		}
	}
	if s.addr != "localhost:25" {
		t.Fatalf("unexpected addr %q", s.addr)
	}
	if s.auth != nil {
		t.Fatalf("expected no auth without username")
	}
}

func TestLogSender_WritesMail(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))

	if err := s.Send(context.Background(), domain.Mail{To: "ana@example.com", Subject: "Reset"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "ana@example.com") {
		t.Fatalf("expected recipient in log, got %s", buf.String())
	}
}
