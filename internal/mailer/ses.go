package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client the transport uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends mail through the AWS SES v2 API. Raw MIME messages go
// out as-is; template requests are expanded by SES server-side.
type SESTransport struct {
	client           sesAPI
	configurationSet string
	timeout          time.Duration
}

// NewSESTransport creates a transport with static credentials from config.
func NewSESTransport(ctx context.Context, cfg appconfig.SESConfig) (*SESTransport, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESTransport{
		client:           sesv2.NewFromConfig(awsCfg),
		configurationSet: cfg.ConfigurationSet,
		timeout:          cfg.Timeout(),
	}, nil
}

// NewSESTransportWithClient creates a transport over an injected client.
// Used by tests.
func NewSESTransportWithClient(client sesAPI, configurationSet string, timeout time.Duration) *SESTransport {
	return &SESTransport{client: client, configurationSet: configurationSet, timeout: timeout}
}

func (t *SESTransport) Name() string { return "ses" }

func (t *SESTransport) Send(ctx context.Context, email *domain.ComposedEmail) (*domain.SendResult, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	content, err := buildContent(email)
	if err != nil {
		return nil, err
	}

	input := &sesv2.SendEmailInput{
		Content:          content,
		FromEmailAddress: aws.String(email.From),
		Destination: &types.Destination{
			ToAddresses:  email.To,
			CcAddresses:  email.Cc,
			BccAddresses: email.Bcc,
		},
		EmailTags: messageTags(email.Tags),
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}

	output, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if output.MessageId != nil {
		messageID = *output.MessageId
	}
	logger.Info("mailer.ses.accepted", "ses_message_id", messageID, "recipients", len(email.To))

	return &domain.SendResult{
		MessageID:  messageID,
		Provider:   t.Name(),
		AcceptedAt: time.Now().UTC(),
		RequestID:  email.Request.RequestIDHint,
	}, nil
}

func buildContent(email *domain.ComposedEmail) (*types.EmailContent, error) {
	if email.Request.TemplateID != "" {
		vars := email.Request.TemplateVars
		if vars == nil {
			vars = map[string]any{}
		}
		data, err := json.Marshal(vars)
		if err != nil {
			return nil, fmt.Errorf("encoding template vars: %w", err)
		}
		return &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(email.Request.TemplateID),
				TemplateData: aws.String(string(data)),
			},
		}, nil
	}
	return &types.EmailContent{
		Raw: &types.RawMessage{Data: []byte(email.RawMime)},
	}, nil
}

func messageTags(tags map[string]string) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]types.MessageTag, 0, len(tags))
	for name, value := range tags {
		out = append(out, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}
	return out
}
