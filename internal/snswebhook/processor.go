package snswebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/emailcrypto"
	"github.com/nimbly/notification-service/internal/pkg/logger"
)

// SuppressionStore is the narrow write contract the pipeline needs. The
// store owns dedup: redelivered notifications produce repeated puts here.
type SuppressionStore interface {
	Put(ctx context.Context, entry *domain.Suppression) error
}

// Processor runs the webhook pipeline for one raw SNS request at a time.
// It holds no cross-request state and is safe for concurrent use.
type Processor struct {
	store         SuppressionStore
	cfg           config.WebhookConfig
	verifier      *Verifier
	confirmClient *http.Client
}

// NewProcessor creates a Processor with default HTTP clients bounded by the
// configured webhook timeout.
func NewProcessor(store SuppressionStore, cfg config.WebhookConfig) *Processor {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewProcessorWithClients(store, cfg,
		NewVerifier(timeout),
		&http.Client{Timeout: timeout})
}

// NewProcessorWithClients creates a Processor with injected verifier and
// confirmation client. Used by tests and custom wiring.
func NewProcessorWithClients(store SuppressionStore, cfg config.WebhookConfig, verifier *Verifier, confirmClient *http.Client) *Processor {
	if verifier == nil {
		verifier = NewVerifier(cfg.Timeout())
	}
	if confirmClient == nil {
		confirmClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Processor{store: store, cfg: cfg, verifier: verifier, confirmClient: confirmClient}
}

// Process runs one SNS request through the pipeline. typeHint is the
// transport-level x-amz-sns-message-type header, if present.
//
// The returned error is one of: nil (accepted — possibly a logged no-op),
// ErrMalformedPayload, ErrUnauthenticated, or a store-write failure.
func (p *Processor) Process(ctx context.Context, rawBody, typeHint string) error {
	env, err := ParseEnvelope(rawBody)
	if err != nil {
		return err
	}

	// A hint that disagrees with the parsed Type is suspicious but not
	// fatal; the parsed value always wins.
	if typeHint != "" && !strings.EqualFold(typeHint, env.Type) {
		logger.Warn("sns.message_type_mismatch", "header", typeHint, "body", env.Type)
	}

	if !p.topicAllowed(env.TopicArn) {
		// An unauthorized topic must look like success to the caller.
		logger.Warn("sns.topic_rejected", "topic_arn", env.TopicArn)
		return nil
	}

	if p.cfg.VerifySignature && !p.verifier.Verify(ctx, env) {
		return ErrUnauthenticated
	}

	switch env.Kind() {
	case KindNotification:
		return p.handleNotification(ctx, env)
	case KindSubscriptionConfirmation:
		p.confirmSubscription(ctx, env)
		return nil
	case KindUnsubscribeConfirmation:
		logger.Warn("sns.unsubscribe_confirmation", "topic_arn", env.TopicArn)
		return nil
	default:
		logger.Warn("sns.unknown_type", "type", env.Type, "message_id", env.MessageID)
		return nil
	}
}

func (p *Processor) topicAllowed(topicArn string) bool {
	if len(p.cfg.AllowedTopics) == 0 {
		return true
	}
	for _, allowed := range p.cfg.AllowedTopics {
		if allowed == "*" || allowed == topicArn {
			return true
		}
	}
	return false
}

func (p *Processor) handleNotification(ctx context.Context, env *Envelope) error {
	if strings.TrimSpace(env.Message) == "" {
		logger.Warn("sns.notification.missing_body", "message_id", env.MessageID)
		return nil
	}

	// The envelope is already authenticated; a malformed inner payload is
	// the provider's bug, not the caller's, so it never becomes an error.
	var payload notificationPayload
	if err := json.Unmarshal([]byte(env.Message), &payload); err != nil {
		logger.Warn("sns.notification.bad_json", "message_id", env.MessageID, "error", err.Error())
		return nil
	}

	switch {
	case strings.EqualFold(payload.NotificationType, "Bounce"):
		return p.handleBounce(ctx, &payload, env)
	case strings.EqualFold(payload.NotificationType, "Complaint"):
		return p.handleComplaint(ctx, &payload)
	default:
		logger.Debug("sns.notification.ignored", "type", payload.NotificationType, "message_id", env.MessageID)
		return nil
	}
}

func (p *Processor) handleBounce(ctx context.Context, payload *notificationPayload, env *Envelope) error {
	bounce := payload.Bounce
	if len(bounce.BouncedRecipients) == 0 {
		logger.Warn("sns.bounce.no_recipients", "message_id", env.MessageID)
		return nil
	}

	if !isHardBounce(bounce.BounceType) {
		// Soft bounces never suppress: only confirmed-permanent failures
		// remove an address from future sends.
		logger.Info("sns.bounce.soft",
			"type", bounce.BounceType, "sub_type", bounce.BounceSubType, "message_id", env.MessageID)
		return nil
	}

	mailMessageID := payload.Mail.MessageID
	for _, rcpt := range bounce.BouncedRecipients {
		if strings.TrimSpace(rcpt.EmailAddress) == "" {
			continue
		}
		normalized := emailcrypto.Normalize(rcpt.EmailAddress)
		if normalized == "" {
			continue
		}

		entry := &domain.Suppression{
			EmailHash: emailcrypto.Hash(normalized),
			Reason:    domain.ReasonBounceHard,
			Source:    domain.SourceSESBounce,
			CreatedAt: time.Now().UTC(),
			Notes:     bounceNote(bounce.BounceType, bounce.BounceSubType, rcpt.DiagnosticCode, mailMessageID),
		}
		if err := p.store.Put(ctx, entry); err != nil {
			return fmt.Errorf("suppress bounced recipient: %w", err)
		}
		logger.Info("sns.bounce.hard_suppressed",
			"hash_prefix", shortHash(entry.EmailHash),
			"type", bounce.BounceType, "sub_type", bounce.BounceSubType)
	}
	return nil
}

func (p *Processor) handleComplaint(ctx context.Context, payload *notificationPayload) error {
	recipients := payload.Complaint.ComplainedRecipients
	if len(recipients) == 0 {
		logger.Warn("sns.complaint.no_recipients")
		return nil
	}

	for _, rcpt := range recipients {
		normalized := emailcrypto.Normalize(rcpt.EmailAddress)
		if normalized == "" {
			continue
		}
		entry := &domain.Suppression{
			EmailHash: emailcrypto.Hash(normalized),
			Reason:    domain.ReasonComplaint,
			Source:    domain.SourceSESComplaint,
			CreatedAt: time.Now().UTC(),
			Notes:     "SES complaint notification",
		}
		if err := p.store.Put(ctx, entry); err != nil {
			return fmt.Errorf("suppress complained recipient: %w", err)
		}
		logger.Info("sns.complaint.suppressed", "hash_prefix", shortHash(entry.EmailHash))
	}
	return nil
}

// confirmSubscription completes the SNS topic handshake. Failures are
// log-only: the caller here is SNS itself, and a failed confirmation must
// never surface as a webhook error.
func (p *Processor) confirmSubscription(ctx context.Context, env *Envelope) {
	if !p.cfg.AutoConfirmSubscriptions {
		logger.Info("sns.subscription.skip_auto_confirm", "topic_arn", env.TopicArn)
		return
	}
	if strings.TrimSpace(env.SubscribeURL) == "" {
		logger.Warn("sns.subscription.missing_url", "topic_arn", env.TopicArn)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.SubscribeURL, nil)
	if err != nil {
		logger.Warn("sns.subscription.bad_url", "topic_arn", env.TopicArn, "error", err.Error())
		return
	}
	resp, err := p.confirmClient.Do(req)
	if err != nil {
		logger.Warn("sns.subscription.confirm_error", "topic_arn", env.TopicArn, "error", err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("sns.subscription.confirmed", "topic_arn", env.TopicArn)
	} else {
		logger.Warn("sns.subscription.confirm_failed", "topic_arn", env.TopicArn, "status", resp.StatusCode)
	}
}

// isHardBounce reports whether a bounce type warrants suppression.
// Only "Permanent" and "Undetermined" (any case) are hard; "Transient"
// and anything unrecognized are soft.
func isHardBounce(bounceType string) bool {
	switch strings.ToLower(strings.TrimSpace(bounceType)) {
	case "permanent", "undetermined":
		return true
	default:
		return false
	}
}

// bounceNote summarizes a bounce for the suppression entry's notes field.
// Blank segments are omitted.
func bounceNote(bounceType, subType, diagnostic, messageID string) string {
	var sb strings.Builder
	sb.WriteString("type=")
	sb.WriteString(bounceType)
	if strings.TrimSpace(subType) != "" {
		sb.WriteString(" subType=")
		sb.WriteString(subType)
	}
	if strings.TrimSpace(diagnostic) != "" {
		sb.WriteString(" diag=")
		sb.WriteString(diagnostic)
	}
	if strings.TrimSpace(messageID) != "" {
		sb.WriteString(" messageId=")
		sb.WriteString(messageID)
	}
	return sb.String()
}

func shortHash(hash string) string {
	if hash == "" {
		return "(blank)"
	}
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}
