// Package notify sends customer-facing notifications. Sends are best
// effort: a failed email never fails the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/valveaudio/backend/internal/infrastructure/config"
)

// Mailer sends a single plain-text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer implements Mailer over plain SMTP
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer from SMTP configuration
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp: from address is required")
	}
	return &SMTPMailer{cfg: cfg, logger: logger}, nil
}

// Send delivers one message. The context is not honored mid-dial because
// net/smtp does not support it; callers already treat sends as best effort.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("smtp: recipient is required")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		m.logger.Warn("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("smtp: failed to send: %w", err)
	}

	m.logger.Debug("Email sent",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// NoopMailer discards all messages. Used when SMTP is not configured.
type NoopMailer struct{}

// NewNoopMailer creates a mailer that drops everything
func NewNoopMailer() *NoopMailer {
	return &NoopMailer{}
}

// Send discards the message
func (m *NoopMailer) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

// RecordedMail is one captured message
type RecordedMail struct {
	To      string
	Subject string
	Body    string
}

// RecordingMailer captures messages in memory (for testing)
type RecordingMailer struct {
	mu    sync.Mutex
	mails []RecordedMail
}

// NewRecordingMailer creates a capturing mailer
func NewRecordingMailer() *RecordingMailer {
	return &RecordingMailer{}
}

// Send records the message
func (m *RecordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, RecordedMail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of all captured messages
func (m *RecordingMailer) Sent() []RecordedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedMail, len(m.mails))
	copy(out, m.mails)
	return out
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*NoopMailer)(nil)
	_ Mailer = (*RecordingMailer)(nil)
)
