package mailer

import "context"

// Sender is implemented by every transport (SMTP, Resend, Graph drafts).
type Sender interface {
	// Send delivers, or for draft transports stores, one message.
	// To, Subject and HTML are always set by the caller.
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, email *Email) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}
