package snswebhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageKind classifies an SNS envelope by its Type field.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindNotification
	KindSubscriptionConfirmation
	KindUnsubscribeConfirmation
)

func (k MessageKind) String() string {
	switch k {
	case KindNotification:
		return "Notification"
	case KindSubscriptionConfirmation:
		return "SubscriptionConfirmation"
	case KindUnsubscribeConfirmation:
		return "UnsubscribeConfirmation"
	default:
		return "Unknown"
	}
}

// Envelope is the outer SNS message. Every field is optional on the wire;
// absence is tolerated throughout the pipeline. Unknown fields are ignored
// for forward compatibility with SNS schema evolution.
type Envelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	TopicArn         string `json:"TopicArn"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	Signature        string `json:"Signature"`
	SignatureVersion string `json:"SignatureVersion"`
	SigningCertURL   string `json:"SigningCertURL"`
	SubscribeURL     string `json:"SubscribeURL"`
	Token            string `json:"Token"`
	Subject          string `json:"Subject"`
}

// Kind maps the raw Type string to a MessageKind. The match is exact and
// case-sensitive, per the SNS contract; anything else is KindUnknown.
func (e *Envelope) Kind() MessageKind {
	switch e.Type {
	case "Notification":
		return KindNotification
	case "SubscriptionConfirmation":
		return KindSubscriptionConfirmation
	case "UnsubscribeConfirmation":
		return KindUnsubscribeConfirmation
	default:
		return KindUnknown
	}
}

// ParseEnvelope decodes a raw request body into an Envelope.
// A blank body or undecodable JSON yields ErrMalformedPayload.
func ParseEnvelope(raw string) (*Envelope, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &env, nil
}
