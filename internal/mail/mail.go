// Package mail delivers rendered HTML over SMTP with STARTTLS. The sender
// retries transient failures the same way the rest of the system retries
// outbound calls: a few attempts with exponential backoff.
package mail

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/deusflow/telecomnews/internal/logger"
	"github.com/deusflow/telecomnews/internal/metrics"
	"github.com/deusflow/telecomnews/internal/retry"
)

type Sender struct {
	Host     string
	Port     int
	User     string
	Password string
}

func NewSender(host string, port int, user, password string) *Sender {
	return &Sender{Host: host, Port: port, User: user, Password: password}
}

// Send delivers one HTML message to all recipients in a single SMTP
// transaction, retrying up to three times.
func (s *Sender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg := s.buildMessage(to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Password, s.Host)

	err := retry.WithRetry(ctx, retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func() error {
		if err := smtp.SendMail(addr, auth, s.User, to, msg); err != nil {
			logger.Warn("smtp send failed", "host", s.Host, "error", err)
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.Global.IncrementDigestsSent()
	logger.Info("email sent", "recipients", len(to), "subject", subject)
	return nil
}

func (s *Sender) buildMessage(to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.User + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	// Subject carries CJK and emoji; RFC 2047 encode it.
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
