package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbly/notification-service/internal/config"
	"github.com/nimbly/notification-service/internal/domain"
)

var (
	// ErrNoRecipients means the request had no To addresses.
	ErrNoRecipients = errors.New("email has no recipients")
	// ErrNoContent means the request carried neither a body nor a template.
	ErrNoContent = errors.New("email has no body or template")
	// ErrNoSender means no From address was given and no default is configured.
	ErrNoSender = errors.New("email has no sender")
)

// Composer builds raw MIME messages from email requests, applying the
// configured defaults (From address, subject prefix, list-unsubscribe
// headers).
type Composer struct {
	cfg config.EmailConfig
}

func NewComposer(cfg config.EmailConfig) *Composer {
	return &Composer{cfg: cfg}
}

// Compose validates the request and renders it into a ComposedEmail. The
// envelope address lists hold bare addresses; display names appear only in
// the MIME headers. Template requests skip MIME rendering entirely since
// the provider expands the template server-side.
func (c *Composer) Compose(req *domain.EmailRequest) (*domain.ComposedEmail, error) {
	if len(bareAddresses(req.To)) == 0 {
		return nil, ErrNoRecipients
	}
	if req.TemplateID == "" && req.TextBody == "" && req.HTMLBody == "" {
		return nil, ErrNoContent
	}

	from := req.From
	if from == nil || strings.TrimSpace(from.Address) == "" {
		if strings.TrimSpace(c.cfg.From) == "" {
			return nil, ErrNoSender
		}
		parsed, err := mail.ParseAddress(c.cfg.From)
		if err != nil {
			return nil, fmt.Errorf("default from address: %w", err)
		}
		from = &domain.EmailAddress{Name: parsed.Name, Address: parsed.Address}
	}

	subject := req.Subject
	if c.cfg.SubjectPrefix != "" && !strings.HasPrefix(subject, c.cfg.SubjectPrefix) {
		subject = c.cfg.SubjectPrefix + subject
	}

	composed := &domain.ComposedEmail{
		Request: req,
		From:    from.Address,
		To:      bareAddresses(req.To),
		Cc:      bareAddresses(req.Cc),
		Bcc:     bareAddresses(req.Bcc),
		Subject: subject,
		Tags:    req.Tags,
	}

	if req.TemplateID == "" {
		raw, err := c.buildMime(from, req, subject)
		if err != nil {
			return nil, fmt.Errorf("building MIME message: %w", err)
		}
		composed.RawMime = raw
	}
	return composed, nil
}

func bareAddresses(addrs []domain.EmailAddress) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if strings.TrimSpace(a.Address) != "" {
			out = append(out, a.Address)
		}
	}
	return out
}

func formatAddress(a *domain.EmailAddress) string {
	return (&mail.Address{Name: a.Name, Address: a.Address}).String()
}

func formatAddressList(addrs []domain.EmailAddress) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		if strings.TrimSpace(addrs[i].Address) == "" {
			continue
		}
		parts = append(parts, formatAddress(&addrs[i]))
	}
	return strings.Join(parts, ", ")
}

// buildMime renders the full RFC 5322 message. Layout:
//
//	no attachments: multipart/alternative (text, html) or a single part
//	attachments:    multipart/mixed wrapping the above plus base64 parts
func (c *Composer) buildMime(from *domain.EmailAddress, req *domain.EmailRequest, subject string) (string, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", formatAddress(from))
	writeHeader(&buf, "To", formatAddressList(req.To))
	if len(req.Cc) > 0 {
		writeHeader(&buf, "Cc", formatAddressList(req.Cc))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader(&buf, "Date", time.Now().UTC().Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", "<"+uuid.NewString()+"@"+addressDomain(from.Address)+">")
	writeHeader(&buf, "MIME-Version", "1.0")
	if c.cfg.ListUnsubscribe != "" {
		writeHeader(&buf, "List-Unsubscribe", c.cfg.ListUnsubscribe)
		if c.cfg.ListUnsubscribePost != "" {
			writeHeader(&buf, "List-Unsubscribe-Post", c.cfg.ListUnsubscribePost)
		}
	}

	if len(req.Attachments) == 0 {
		if err := writeBody(&buf, req); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	mixed := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", `multipart/mixed; boundary="`+mixed.Boundary()+`"`)
	buf.WriteString("\r\n")

	if err := writeBodyPart(mixed, req); err != nil {
		return "", err
	}

	for _, att := range req.Attachments {
		header := textproto.MIMEHeader{}
		mimeType := att.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header.Set("Content-Type", mimeType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", `attachment; filename="`+att.Filename+`"`)

		part, err := mixed.CreatePart(header)
		if err != nil {
			return "", err
		}
		if err := writeBase64Lines(part, att.Content); err != nil {
			return "", err
		}
	}

	if err := mixed.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeBody emits the Content-Type header plus payload for the text/html
// content at the top level of the message.
func writeBody(buf *bytes.Buffer, req *domain.EmailRequest) error {
	switch {
	case req.TextBody != "" && req.HTMLBody != "":
		alt := multipart.NewWriter(buf)
		writeHeader(buf, "Content-Type", `multipart/alternative; boundary="`+alt.Boundary()+`"`)
		buf.WriteString("\r\n")
		return writeAlternative(alt, req)
	case req.HTMLBody != "":
		writeHeader(buf, "Content-Type", `text/html; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(req.HTMLBody)
		buf.WriteString("\r\n")
		return nil
	default:
		writeHeader(buf, "Content-Type", `text/plain; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(req.TextBody)
		buf.WriteString("\r\n")
		return nil
	}
}

// writeBodyPart emits the text/html content as one part of a mixed
// multipart, nesting an alternative part when both bodies are present.
func writeBodyPart(mixed *multipart.Writer, req *domain.EmailRequest) error {
	header := textproto.MIMEHeader{}
	switch {
	case req.TextBody != "" && req.HTMLBody != "":
		boundary := "alt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		header.Set("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
		part, err := mixed.CreatePart(header)
		if err != nil {
			return err
		}
		alt := multipart.NewWriter(part)
		if err := alt.SetBoundary(boundary); err != nil {
			return err
		}
		return writeAlternative(alt, req)
	case req.HTMLBody != "":
		header.Set("Content-Type", `text/html; charset="utf-8"`)
		part, err := mixed.CreatePart(header)
		if err != nil {
			return err
		}
		_, err = io.WriteString(part, req.HTMLBody+"\r\n")
		return err
	default:
		header.Set("Content-Type", `text/plain; charset="utf-8"`)
		part, err := mixed.CreatePart(header)
		if err != nil {
			return err
		}
		_, err = io.WriteString(part, req.TextBody+"\r\n")
		return err
	}
}

func writeAlternative(alt *multipart.Writer, req *domain.EmailRequest) error {
	if err := writeTextPart(alt, "text/plain", req.TextBody); err != nil {
		return err
	}
	if err := writeTextPart(alt, "text/html", req.HTMLBody); err != nil {
		return err
	}
	return alt.Close()
}

func writeTextPart(w *multipart.Writer, contentType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+`; charset="utf-8"`)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.WriteString(part, body+"\r\n")
	return err
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// writeBase64Lines encodes content at the RFC 2045 76-column limit.
func writeBase64Lines(w io.Writer, content []byte) error {
	encoded := base64.StdEncoding.EncodeToString(content)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := io.WriteString(w, encoded[:n]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

func addressDomain(addr string) string {
	if _, domainPart, ok := strings.Cut(addr, "@"); ok && domainPart != "" {
		return domainPart
	}
	return "localhost"
}
