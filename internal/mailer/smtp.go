package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"

	"github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/pkg/logger"
)

// ErrTemplateUnsupported is returned for template sends over SMTP; template
// expansion only exists on the SES API path.
var ErrTemplateUnsupported = errors.New("smtp transport does not support template sends")

// sendMailFunc matches smtp.SendMail; swapped out in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport relays raw MIME messages through a configured SMTP host.
type SMTPTransport struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, sendMail: smtp.SendMail}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(_ context.Context, email *domain.ComposedEmail) (*domain.SendResult, error) {
	if email.Request.TemplateID != "" {
		return nil, ErrTemplateUnsupported
	}

	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	// The SMTP envelope carries every recipient class; Bcc stays out of
	// the headers only.
	rcpts := make([]string, 0, len(email.To)+len(email.Cc)+len(email.Bcc))
	rcpts = append(rcpts, email.To...)
	rcpts = append(rcpts, email.Cc...)
	rcpts = append(rcpts, email.Bcc...)

	if err := t.sendMail(t.cfg.Addr(), auth, email.From, rcpts, []byte(email.RawMime)); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}

	// SMTP gives no provider message id back; mint one for correlation.
	messageID := uuid.NewString()
	logger.Info("mailer.smtp.accepted", "relay", t.cfg.Addr(), "recipients", len(rcpts))

	return &domain.SendResult{
		MessageID:  messageID,
		Provider:   t.Name(),
		AcceptedAt: time.Now().UTC(),
		RequestID:  email.Request.RequestIDHint,
	}, nil
}
