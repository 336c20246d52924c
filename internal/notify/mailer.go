// Package notify implements the transactional email worker. It renders
// templated order messages and dispatches them through a Mailer
// transport, always off a queue, never on the webhook request path.
//
// Recipient addresses exist here only in memory while a job runs; logs
// carry the masked form.
package notify

import (
	"context"
	"net/smtp"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-order-backend/internal/pii"
)

// Mailer dispatches one rendered message. Implementations must be safe
// for concurrent use; errors propagate as job failures and are retried
// by the queue policy.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP endpoint.
type SMTPMailer struct {
	// Addr is host:port of the SMTP server.
	Addr string
	// From is the envelope sender.
	From string
	// Auth is optional; nil sends unauthenticated (local relay).
	Auth smtp.Auth
}

// Send delivers the message via net/smtp. The context is accepted for
// interface symmetry; net/smtp has no native cancellation.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := []byte("From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, msg)
}

// LogMailer is the transport used when no SMTP endpoint is configured:
// it logs the dispatch (masked recipient, no body) and succeeds. Useful
// in development and tests.
type LogMailer struct{}

// Send logs the would-be dispatch.
func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Info().
		Str("to", pii.MaskEmail(to)).
		Str("subject", subject).
		Msg("email dispatch (log transport)")
	return nil
}
