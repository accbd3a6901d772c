// Package mailer composes and sends outbound email. A Composer turns an
// EmailRequest into a raw MIME message; a Transport (SES v2 API or SMTP
// relay) delivers it; the Service glues both together behind the
// suppression list so suppressed recipients are never handed to a
// transport.
package mailer
