// Package resend implements mailer.Sender on the Resend HTTP API.
package resend

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// ErrMissingAPIKey is returned by New without an API key.
var ErrMissingAPIKey = errors.New("resend: api key is required")

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	client *resend.Client
	from   string
}

// New creates a Resend sender.
func New(cfg Config) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return NewWithClient(resend.NewClient(cfg.APIKey), cfg), nil
}

// NewWithClient creates a sender on an existing client, e.g. one pointed at a
// test server through client.BaseURL.
func NewWithClient(client *resend.Client, cfg Config) *Sender {
	return &Sender{
		client: client,
		from:   mailer.FromLine(cfg.SenderName, cfg.SenderEmail),
	}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	from := email.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return mailer.ErrNoSender
	}

	req := &resend.SendEmailRequest{
		From:        from,
		To:          email.To,
		Subject:     email.Subject,
		Html:        email.HTML,
		Text:        email.Text,
		ReplyTo:     email.ReplyTo,
		Cc:          email.CC,
		Bcc:         email.BCC,
		Headers:     email.Headers,
		Attachments: convertAttachments(email.Attachments),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		out[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
			ContentId:   a.ContentID,
		}
	}
	return out
}
