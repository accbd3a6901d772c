package mailer

import (
	"context"

	"github.com/nimbly/notification-service/internal/domain"
)

// Transport delivers a composed email through one provider.
type Transport interface {
	// Name identifies the provider in logs and send results.
	Name() string
	// Send hands the message to the provider and reports its message id.
	Send(ctx context.Context, email *domain.ComposedEmail) (*domain.SendResult, error)
}
