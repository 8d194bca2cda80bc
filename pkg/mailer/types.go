package mailer

import "fmt"

// FromLine formats a sender as an RFC 5322 mailbox with a quoted display name.
// Returns the bare address when name is empty.
func FromLine(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%q <%s>", name, email)
}

// Email is a fully-prepared message ready for a Sender.
type Email struct {
	Headers     map[string]string
	Subject     string
	HTML        string
	Text        string // plain text alternative
	From        string // empty means the sender's configured default
	ReplyTo     string
	To          []string
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// Attachment is a file attached to an Email.
// A non-empty ContentID marks it inline, referenced from HTML as cid:<ContentID>.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Content     []byte
}

// Inline reports whether the attachment is embedded in the HTML body.
func (a Attachment) Inline() bool {
	return a.ContentID != ""
}

// Recipients carries the secondary recipient lists of a message.
type Recipients struct {
	CC  []string
	BCC []string
}
