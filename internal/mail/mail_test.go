package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deusflow/telecomnews/internal/logger"
)

func init() {
	logger.Init()
}

func TestBuildMessage(t *testing.T) {
	s := NewSender("smtp.gmail.com", 587, "bot@example.com", "secret")
	msg := string(s.buildMessage(
		[]string{"a@example.com", "b@example.com"},
		"📡 電信產業日報 - 2026年08月29日 (Sat)",
		"<html><body>digest</body></html>",
	))

	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=\"utf-8\"\r\n")
	// CJK subject must be RFC 2047 encoded, never raw.
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.NotContains(t, msg, "Subject: 📡")
	assert.Contains(t, msg, "\r\n\r\n<html><body>digest</body></html>")
}

func TestSendRequiresRecipients(t *testing.T) {
	s := NewSender("localhost", 2525, "bot@example.com", "secret")
	err := s.Send(context.Background(), nil, "subject", "<html></html>")
	assert.Error(t, err)
}
