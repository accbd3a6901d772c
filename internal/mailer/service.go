package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/pkg/logger"
)

// ErrAllRecipientsSuppressed means every To address sits on the
// suppression list, so there is nothing left to send.
var ErrAllRecipientsSuppressed = errors.New("all recipients are suppressed")

// SuppressionChecker answers whether an address is on the suppression list.
type SuppressionChecker interface {
	IsAddressSuppressed(ctx context.Context, address string) (bool, error)
}

// Service is the outbound-email entry point: it screens recipients against
// the suppression list, composes the message, and hands it to the transport.
type Service struct {
	composer     *Composer
	transport    Transport
	suppressions SuppressionChecker
}

func NewService(composer *Composer, transport Transport, suppressions SuppressionChecker) *Service {
	return &Service{composer: composer, transport: transport, suppressions: suppressions}
}

// Send delivers one email. Suppressed recipients are dropped, not errors;
// the send fails only when no To recipient survives screening. The result
// reports how many recipients were dropped.
func (s *Service) Send(ctx context.Context, req *domain.EmailRequest) (*domain.SendResult, error) {
	screened := *req

	var suppressed int
	var err error
	screened.To, suppressed, err = s.screen(ctx, req.To, suppressed)
	if err != nil {
		return nil, err
	}
	if len(screened.To) == 0 && len(req.To) > 0 {
		return nil, ErrAllRecipientsSuppressed
	}
	screened.Cc, suppressed, err = s.screen(ctx, req.Cc, suppressed)
	if err != nil {
		return nil, err
	}
	screened.Bcc, suppressed, err = s.screen(ctx, req.Bcc, suppressed)
	if err != nil {
		return nil, err
	}

	composed, err := s.composer.Compose(&screened)
	if err != nil {
		return nil, err
	}

	result, err := s.transport.Send(ctx, composed)
	if err != nil {
		return nil, err
	}
	result.Suppressed = suppressed

	logger.Info("mailer.sent",
		"provider", result.Provider,
		"message_id", result.MessageID,
		"recipients", len(composed.To),
		"suppressed", suppressed)
	return result, nil
}

// screen drops suppressed addresses from the list. A failed lookup aborts
// the send rather than risk mailing a suppressed address.
func (s *Service) screen(ctx context.Context, addrs []domain.EmailAddress, suppressed int) ([]domain.EmailAddress, int, error) {
	if s.suppressions == nil || len(addrs) == 0 {
		return addrs, suppressed, nil
	}
	kept := make([]domain.EmailAddress, 0, len(addrs))
	for _, a := range addrs {
		hit, err := s.suppressions.IsAddressSuppressed(ctx, a.Address)
		if err != nil {
			return nil, suppressed, fmt.Errorf("suppression check: %w", err)
		}
		if hit {
			suppressed++
			logger.Debug("mailer.recipient_suppressed", "email", a.Address)
			continue
		}
		kept = append(kept, a)
	}
	return kept, suppressed, nil
}
