package domain

import "time"

// EmailAddress is a display name plus address pair.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Attachment is a file attached to an outbound email.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

// EmailRequest describes an outbound email as submitted by a caller.
// Either TextBody/HTMLBody or TemplateID must be set.
type EmailRequest struct {
	From    *EmailAddress  `json:"from,omitempty"`
	To      []EmailAddress `json:"to"`
	Cc      []EmailAddress `json:"cc,omitempty"`
	Bcc     []EmailAddress `json:"bcc,omitempty"`
	Subject string         `json:"subject"`

	TextBody string `json:"text_body,omitempty"`
	HTMLBody string `json:"html_body,omitempty"`

	TemplateID   string         `json:"template_id,omitempty"`
	TemplateVars map[string]any `json:"template_vars,omitempty"`

	Tags        map[string]string `json:"tags,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`

	// RequestIDHint is an optional idempotency key the caller can set so
	// providers reuse the same message id if a retry happens.
	RequestIDHint string `json:"request_id_hint,omitempty"`
}

// ComposedEmail is an EmailRequest after composition: formatted addresses,
// final subject, and the raw MIME message ready for a transport.
type ComposedEmail struct {
	Request *EmailRequest
	RawMime string
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Tags    map[string]string
}

// SendResult reports a transport-accepted message.
type SendResult struct {
	// MessageID is the provider-assigned identifier (SES MessageId, SMTP queue id).
	MessageID string `json:"message_id"`
	// Provider is the logical transport name ("ses", "smtp") for observability.
	Provider string `json:"provider"`
	// AcceptedAt is when the provider accepted the message.
	AcceptedAt time.Time `json:"accepted_at"`
	// RequestID is the optional idempotency/correlation id from the request.
	RequestID string `json:"request_id,omitempty"`
	// Suppressed lists recipients dropped because they are on the
	// suppression list (reported, never sent).
	Suppressed int `json:"suppressed,omitempty"`
}
