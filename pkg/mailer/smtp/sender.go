// Package smtp implements mailer.Sender over SMTP using wneessen/go-mail.
package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("smtp: invalid config")

// Dialer delivers built messages. *gomail.Client satisfies it.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Sender implements mailer.Sender over SMTP.
type Sender struct {
	dialer Dialer
	from   string
}

// New creates an SMTP sender from cfg.
func New(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}

	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
	}
	if cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	}
	if cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp: failed to create client: %w", err)
	}

	return NewWithDialer(client, defaultFrom(cfg)), nil
}

// NewWithDialer creates a sender delivering through d, using from when a
// message carries no sender of its own.
func NewWithDialer(d Dialer, from string) *Sender {
	return &Sender{dialer: d, from: from}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	msg, err := s.build(email)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}
	return nil
}

func (s *Sender) build(email *mailer.Email) (*gomail.Msg, error) {
	from := email.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return nil, mailer.ErrNoSender
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("smtp: failed to set from: %w", err)
	}
	if err := m.To(email.To...); err != nil {
		return nil, fmt.Errorf("smtp: failed to set to: %w", err)
	}
	if len(email.CC) > 0 {
		if err := m.Cc(email.CC...); err != nil {
			return nil, fmt.Errorf("smtp: failed to set cc: %w", err)
		}
	}
	if len(email.BCC) > 0 {
		if err := m.Bcc(email.BCC...); err != nil {
			return nil, fmt.Errorf("smtp: failed to set bcc: %w", err)
		}
	}
	if email.ReplyTo != "" {
		if err := m.ReplyTo(email.ReplyTo); err != nil {
			return nil, fmt.Errorf("smtp: failed to set reply-to: %w", err)
		}
	}
	for k, v := range email.Headers {
		m.SetGenHeader(gomail.Header(k), v)
	}

	m.Subject(email.Subject)
	m.SetBodyString(gomail.TypeTextHTML, email.HTML)
	if email.Text != "" {
		m.AddAlternativeString(gomail.TypeTextPlain, email.Text)
	}

	for _, a := range email.Attachments {
		opts := []gomail.FileOption{}
		if a.ContentType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
		}
		if a.Inline() {
			opts = append(opts, gomail.WithFileContentID(a.ContentID))
			if err := m.EmbedReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
				return nil, fmt.Errorf("smtp: failed to embed %s: %w", a.Filename, err)
			}
			continue
		}
		if err := m.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("smtp: failed to attach %s: %w", a.Filename, err)
		}
	}

	return m, nil
}

func tlsPolicy(s string) (gomail.TLSPolicy, error) {
	switch s {
	case "", "mandatory":
		return gomail.TLSMandatory, nil
	case "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "none":
		return gomail.NoTLS, nil
	default:
		return gomail.TLSMandatory, fmt.Errorf("%w: unknown tls policy %q", ErrInvalidConfig, s)
	}
}

func defaultFrom(cfg Config) string {
	email := cfg.SenderEmail
	if email == "" {
		email = cfg.Username
	}
	if email == "" {
		return ""
	}
	return mailer.FromLine(cfg.SenderName, email)
}
