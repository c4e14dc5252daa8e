package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/rishabhv97/kiwisqft/internal/config"
)

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// NewSender picks the sender for the configuration: SMTP when a host is set,
// otherwise log output. EMAIL_LOG_FILE and EMAIL_REDIS_CAPTURE add copies.
func NewSender(cfg *config.Config, capture Sender) (Sender, error) {
	composite := NewCompositeEmailSender(NewSMTPSender(cfg))
	if cfg.EmailLogFile != "" {
		fileSender, err := NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			return nil, err
		}
		composite.AddSender(fileSender)
	}
	composite.AddSender(capture)
	return composite, nil
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, or a LoggingSender when no SMTP
// host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		slog.Info("SMTP host not configured, using logging email sender")
		return &LoggingSender{}
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	slog.Info("email sent", "to", to, "subject", subject)
	return nil
}

// LoggingSender only logs the message. Useful for development.
type LoggingSender struct{}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	slog.Info("email (not sent)", "to", to, "subject", subject, "message", string(rawMessage))
	return nil
}

// BuildMessage renders a plain-text RFC 5322 message.
func BuildMessage(from, to, subject, body string, at time.Time) []byte {
	var sb strings.Builder
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\r\n") {
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}
