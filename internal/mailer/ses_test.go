package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbly/notification-service/internal/domain"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-msg-1")}, nil
}

func composedRaw() *domain.ComposedEmail {
	return &domain.ComposedEmail{
		Request: &domain.EmailRequest{RequestIDHint: "req-1"},
		RawMime: "From: ops@example.com\r\n\r\nbody",
		From:    "ops@example.com",
		To:      []string{"ana@example.com"},
		Cc:      []string{"cc@example.com"},
		Bcc:     []string{"bcc@example.com"},
		Tags:    map[string]string{"campaign": "digest"},
	}
}

func TestSESTransportSendRaw(t *testing.T) {
	client := &fakeSES{}
	transport := NewSESTransportWithClient(client, "prod-set", 5*time.Second)

	result, err := transport.Send(context.Background(), composedRaw())
	require.NoError(t, err)
	assert.Equal(t, "ses-msg-1", result.MessageID)
	assert.Equal(t, "ses", result.Provider)
	assert.Equal(t, "req-1", result.RequestID)

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "ops@example.com", aws.ToString(input.FromEmailAddress))
	assert.Equal(t, []string{"ana@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, []string{"cc@example.com"}, input.Destination.CcAddresses)
	assert.Equal(t, []string{"bcc@example.com"}, input.Destination.BccAddresses)
	assert.Equal(t, "prod-set", aws.ToString(input.ConfigurationSetName))
	require.NotNil(t, input.Content.Raw)
	assert.Contains(t, string(input.Content.Raw.Data), "body")
	require.Len(t, input.EmailTags, 1)
	assert.Equal(t, "campaign", aws.ToString(input.EmailTags[0].Name))
}

func TestSESTransportSendTemplate(t *testing.T) {
	client := &fakeSES{}
	transport := NewSESTransportWithClient(client, "", 0)

	email := &domain.ComposedEmail{
		Request: &domain.EmailRequest{
			TemplateID:   "welcome-v2",
			TemplateVars: map[string]any{"name": "Ana"},
		},
		From: "ops@example.com",
		To:   []string{"ana@example.com"},
	}

	_, err := transport.Send(context.Background(), email)
	require.NoError(t, err)

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	require.NotNil(t, input.Content.Template)
	assert.Equal(t, "welcome-v2", aws.ToString(input.Content.Template.TemplateName))
	assert.JSONEq(t, `{"name":"Ana"}`, aws.ToString(input.Content.Template.TemplateData))
	assert.Nil(t, input.ConfigurationSetName)
}

func TestSESTransportSendTemplateNoVars(t *testing.T) {
	client := &fakeSES{}
	transport := NewSESTransportWithClient(client, "", 0)

	email := &domain.ComposedEmail{
		Request: &domain.EmailRequest{TemplateID: "welcome-v2"},
		From:    "ops@example.com",
		To:      []string{"ana@example.com"},
	}
	_, err := transport.Send(context.Background(), email)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, aws.ToString(client.inputs[0].Content.Template.TemplateData))
}

func TestSESTransportSendFailure(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	transport := NewSESTransportWithClient(client, "", 0)

	_, err := transport.Send(context.Background(), composedRaw())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
