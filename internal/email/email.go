// Package email sends transactional mail: order confirmations, payment
// receipts, cancellation notices. The worker drives it off order events.
package email

import "context"

// Email represents an email message to be sent.
type Email struct {
	To       []string
	From     string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender defines the interface for sending emails. Implementations can use
// SMTP, Postmark, SES, etc.
type Sender interface {
	// Send sends an email message. Returns the provider's message ID when
	// one is available.
	Send(ctx context.Context, email *Email) (string, error)
}
