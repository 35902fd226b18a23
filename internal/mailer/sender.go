// Package mailer queues outbound email in the database and delivers it over
// SMTP from a background worker with bounded retries.
package mailer

import (
	"context"
	"fmt"

	"hrportal/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers one rendered plain-text email
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes emails to the log instead of sending them. Used when SMTP is disabled.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Info("Email delivery disabled, logging message",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// NewSender picks the SMTP sender when email is enabled
func NewSender(cfg config.EmailConfig, log *zap.Logger) Sender {
	if cfg.Enabled {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(log)
}
