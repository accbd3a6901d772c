package snswebhook

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimbly/notification-service/internal/pkg/logger"
)

// TrustedCertHostSuffix pins certificate fetches to AWS-owned hosts. The
// check runs before any network call; a forged SigningCertURL must never
// cause an outbound request.
const TrustedCertHostSuffix = ".amazonaws.com"

// maxCertBytes bounds the certificate download.
const maxCertBytes = 64 * 1024

// Verifier proves an SNS envelope was signed by the provider's key.
// All failures are fail-closed: Verify only ever returns a boolean, with
// the reason logged, never an error the caller could leak.
type Verifier struct {
	client            *http.Client
	trustedHostSuffix string
}

// NewVerifier creates a Verifier with the given fetch timeout.
func NewVerifier(timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewVerifierWithClient(&http.Client{Timeout: timeout}, TrustedCertHostSuffix)
}

// NewVerifierWithClient creates a Verifier with a custom HTTP client and
// trusted certificate host suffix. Used by tests.
func NewVerifierWithClient(client *http.Client, trustedHostSuffix string) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if trustedHostSuffix == "" {
		trustedHostSuffix = TrustedCertHostSuffix
	}
	return &Verifier{client: client, trustedHostSuffix: trustedHostSuffix}
}

// Verify checks the envelope's signature against the certificate published
// at its SigningCertURL. SNS signs with SHA1withRSA (SignatureVersion 1).
func (v *Verifier) Verify(ctx context.Context, env *Envelope) bool {
	if strings.TrimSpace(env.Signature) == "" || strings.TrimSpace(env.SigningCertURL) == "" {
		logger.Warn("sns.signature.missing_fields", "message_id", env.MessageID)
		return false
	}
	// Unknown kinds have no signing contract to verify against.
	if _, ok := signingFields[env.Kind()]; !ok {
		logger.Warn("sns.signature.unknown_type", "type", env.Type, "message_id", env.MessageID)
		return false
	}

	certURL, err := url.Parse(env.SigningCertURL)
	if err != nil {
		logger.Warn("sns.signature.bad_cert_url", "url", env.SigningCertURL)
		return false
	}
	if !strings.EqualFold(certURL.Scheme, "https") ||
		certURL.Hostname() == "" ||
		!strings.HasSuffix(strings.ToLower(certURL.Hostname()), v.trustedHostSuffix) {
		logger.Warn("sns.signature.untrusted_cert", "url", env.SigningCertURL)
		return false
	}

	cert, err := v.fetchCertificate(ctx, certURL.String())
	if err != nil {
		logger.Warn("sns.signature.cert_fetch_failed", "error", err.Error())
		return false
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		logger.Warn("sns.signature.not_rsa", "url", env.SigningCertURL)
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		logger.Warn("sns.signature.bad_base64", "message_id", env.MessageID)
		return false
	}

	digest := sha1.Sum([]byte(stringToSign(env)))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig); err != nil {
		logger.Warn("sns.signature.invalid", "message_id", env.MessageID)
		return false
	}
	return true
}

func (v *Verifier) fetchCertificate(ctx context.Context, certURL string) (*x509.Certificate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &certFetchError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertBytes))
	if err != nil {
		return nil, err
	}
	return parseCertificate(body)
}

// parseCertificate accepts the certificate in PEM or raw DER form.
func parseCertificate(data []byte) (*x509.Certificate, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	return x509.ParseCertificate(data)
}

type certFetchError struct{ status int }

func (e *certFetchError) Error() string {
	return fmt.Sprintf("certificate fetch returned status %d", e.status)
}

// signingField is one (name, accessor) pair of the SNS signing contract.
type signingField struct {
	name  string
	value func(e *Envelope) string
}

// signingFields maps each message kind to the exact ordered field list SNS
// signs. Order and membership are part of the provider contract and must
// match bit-for-bit.
var signingFields = map[MessageKind][]signingField{
	KindNotification: {
		{"Message", func(e *Envelope) string { return e.Message }},
		{"MessageId", func(e *Envelope) string { return e.MessageID }},
		{"Subject", func(e *Envelope) string { return e.Subject }},
		{"Timestamp", func(e *Envelope) string { return e.Timestamp }},
		{"TopicArn", func(e *Envelope) string { return e.TopicArn }},
		{"Type", func(e *Envelope) string { return e.Type }},
	},
	KindSubscriptionConfirmation: confirmationSigningFields,
	KindUnsubscribeConfirmation:  confirmationSigningFields,
}

var confirmationSigningFields = []signingField{
	{"Message", func(e *Envelope) string { return e.Message }},
	{"MessageId", func(e *Envelope) string { return e.MessageID }},
	{"SubscribeURL", func(e *Envelope) string { return e.SubscribeURL }},
	{"Timestamp", func(e *Envelope) string { return e.Timestamp }},
	{"Token", func(e *Envelope) string { return e.Token }},
	{"TopicArn", func(e *Envelope) string { return e.TopicArn }},
	{"Type", func(e *Envelope) string { return e.Type }},
}

// stringToSign reconstructs the canonical signed string for the envelope:
// "Name\nValue\n" per field, blank fields omitted entirely. Unknown kinds
// produce an empty string (nothing to verify against).
func stringToSign(env *Envelope) string {
	var sb strings.Builder
	for _, f := range signingFields[env.Kind()] {
		val := f.value(env)
		if strings.TrimSpace(val) == "" {
			continue
		}
		sb.WriteString(f.name)
		sb.WriteByte('\n')
		sb.WriteString(val)
		sb.WriteByte('\n')
	}
	return sb.String()
}
