package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/mailmerge/pkg/sanitizer"
)

// Mailer wraps a Sender with message assembly and validation.
type Mailer struct {
	sender Sender
}

// New creates a Mailer delivering through sender.
func New(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// SendMail assembles and delivers one message.
// The plain text alternative is derived from html.
func (m *Mailer) SendMail(
	ctx context.Context,
	from string,
	to []string,
	subject, html string,
	attachments []Attachment,
	rcpt Recipients,
) error {
	email := &Email{
		From:        from,
		To:          to,
		CC:          rcpt.CC,
		BCC:         rcpt.BCC,
		Subject:     subject,
		HTML:        html,
		Text:        sanitizer.PlainText(html),
		Attachments: attachments,
	}
	return m.SendRaw(ctx, email)
}

// SendRaw validates and delivers a pre-built message.
func (m *Mailer) SendRaw(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.Subject == "" {
		return ErrNoSubject
	}
	if email.HTML == "" {
		return ErrNoContent
	}
	for _, list := range [][]string{email.To, email.CC, email.BCC} {
		for _, addr := range list {
			if !ValidateEmail(addr) {
				return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
			}
		}
	}

	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}
