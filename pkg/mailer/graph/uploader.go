// Package graph uploads merged emails as Outlook drafts through the Microsoft
// Graph API instead of sending them.
package graph

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

const (
	// Attachments above this size go through an upload session.
	inlineAttachmentLimit = 3 << 20
	uploadChunkSize       = 4 << 20
)

// Uploader implements mailer.Sender by creating drafts in a mailbox.
type Uploader struct {
	client       *http.Client // authenticated Graph client
	uploadClient *http.Client // upload session URLs are pre-authenticated
	baseURL      string
	userPath     string
	spacingHack  bool
	chunkSize    int
	inlineLimit  int
	logger       *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithBaseURL overrides the Graph endpoint, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(up *Uploader) { up.baseURL = strings.TrimRight(u, "/") }
}

// WithMailbox targets /users/{mailbox}, as required with application
// credentials. Without it the signed-in user (/me) is used.
func WithMailbox(mailbox string) Option {
	return func(up *Uploader) {
		if mailbox != "" {
			up.userPath = "/users/" + url.PathEscape(mailbox)
		}
	}
}

// WithOutlookSpacingHack toggles OutlookParagraphSpacing on uploaded bodies.
func WithOutlookSpacingHack(enabled bool) Option {
	return func(up *Uploader) { up.spacingHack = enabled }
}

// WithUploadClient sets the client used for upload session chunks.
func WithUploadClient(c *http.Client) Option {
	return func(up *Uploader) { up.uploadClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(up *Uploader) { up.logger = l }
}

// New creates an Uploader on an authenticated client (see ClientCredentials
// and DeviceCode).
func New(client *http.Client, opts ...Option) *Uploader {
	up := &Uploader{
		client:       client,
		uploadClient: http.DefaultClient,
		baseURL:      "https://graph.microsoft.com/v1.0",
		userPath:     "/me",
		spacingHack:  true,
		chunkSize:    uploadChunkSize,
		inlineLimit:  inlineAttachmentLimit,
		logger:       logger.NewNope(),
	}
	for _, opt := range opts {
		opt(up)
	}
	return up
}

var adjacentParagraphs = regexp.MustCompile(`</p>\s*<p>`)

// OutlookParagraphSpacing inserts an empty paragraph between adjacent
// paragraphs. Outlook drops the default <p> margins, so without it
// paragraphs run together.
func OutlookParagraphSpacing(html string) string {
	return adjacentParagraphs.ReplaceAllString(html, "</p><p><br></p><p>")
}

// VerifyMailbox checks that the authenticated user or target mailbox is
// expected, matching either its mail or userPrincipalName.
func (u *Uploader) VerifyMailbox(ctx context.Context, expected string) error {
	var user struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := u.do(ctx, http.MethodGet, u.userPath+"?$select=mail,userPrincipalName", nil, &user); err != nil {
		return fmt.Errorf("graph: fetch mailbox profile: %w", err)
	}

	if !strings.EqualFold(user.Mail, expected) && !strings.EqualFold(user.UserPrincipalName, expected) {
		return fmt.Errorf("%w: want %s, got %s", ErrMailboxMismatch, expected, cmp.Or(user.Mail, user.UserPrincipalName))
	}

	u.logger.InfoContext(ctx, "graph mailbox verified", slog.String("mailbox", expected))
	return nil
}

type recipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

func recipients(addrs []string) []recipient {
	out := make([]recipient, len(addrs))
	for i, a := range addrs {
		out[i].EmailAddress.Address = a
	}
	return out
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type draftMessage struct {
	Subject       string      `json:"subject"`
	Body          itemBody    `json:"body"`
	ToRecipients  []recipient `json:"toRecipients"`
	CcRecipients  []recipient `json:"ccRecipients"`
	BccRecipients []recipient `json:"bccRecipients"`
	ReplyTo       []recipient `json:"replyTo,omitempty"`
}

// Send implements mailer.Sender by creating a draft with its attachments.
// email.From is ignored; drafts belong to the target mailbox.
func (u *Uploader) Send(ctx context.Context, email *mailer.Email) error {
	html := email.HTML
	if u.spacingHack {
		html = OutlookParagraphSpacing(html)
	}

	msg := draftMessage{
		Subject:       email.Subject,
		Body:          itemBody{ContentType: "HTML", Content: html},
		ToRecipients:  recipients(email.To),
		CcRecipients:  recipients(email.CC),
		BccRecipients: recipients(email.BCC),
	}
	if email.ReplyTo != "" {
		msg.ReplyTo = recipients([]string{email.ReplyTo})
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := u.do(ctx, http.MethodPost, u.userPath+"/messages", msg, &created); err != nil {
		return fmt.Errorf("graph: create draft: %w", err)
	}
	u.logger.DebugContext(ctx, "draft created", slog.String("message_id", created.ID))

	for _, a := range email.Attachments {
		if err := u.uploadAttachment(ctx, created.ID, a); err != nil {
			return fmt.Errorf("graph: attach %s: %w", a.Filename, err)
		}
	}
	return nil
}

func (u *Uploader) uploadAttachment(ctx context.Context, messageID string, a mailer.Attachment) error {
	path := fmt.Sprintf("%s/messages/%s/attachments", u.userPath, url.PathEscape(messageID))

	if len(a.Content) <= u.inlineLimit {
		body := map[string]any{
			"@odata.type":  "#microsoft.graph.fileAttachment",
			"name":         a.Filename,
			"contentType":  a.ContentType,
			"contentBytes": base64.StdEncoding.EncodeToString(a.Content),
			"isInline":     a.Inline(),
		}
		if a.Inline() {
			body["contentId"] = a.ContentID
		}
		return u.do(ctx, http.MethodPost, path, body, nil)
	}

	item := map[string]any{
		"attachmentType": "file",
		"name":           a.Filename,
		"size":           len(a.Content),
		"contentType":    a.ContentType,
		"isInline":       a.Inline(),
	}
	if a.Inline() {
		item["contentId"] = a.ContentID
	}

	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := u.do(ctx, http.MethodPost, path+"/createUploadSession", map[string]any{"AttachmentItem": item}, &session); err != nil {
		return err
	}
	if session.UploadURL == "" {
		return fmt.Errorf("%w: no upload url returned", ErrUploadSession)
	}

	u.logger.InfoContext(ctx, "uploading large attachment",
		slog.String("filename", a.Filename),
		slog.Int("size", len(a.Content)),
	)
	return u.uploadChunks(ctx, session.UploadURL, a.Content)
}

// uploadChunks PUTs content in chunks, following nextExpectedRanges when the
// service reports them, until it answers 201 Created.
func (u *Uploader) uploadChunks(ctx context.Context, uploadURL string, content []byte) error {
	size := len(content)
	start := 0
	for start < size {
		end := min(start+u.chunkSize, size) - 1

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content[start:end+1]))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		req.ContentLength = int64(end - start + 1)

		resp, err := u.uploadClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUploadSession, err)
		}

		if resp.StatusCode == http.StatusCreated {
			resp.Body.Close()
			return nil
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			apiErr := readAPIError(resp)
			resp.Body.Close()
			return fmt.Errorf("%w: %w", ErrUploadSession, apiErr)
		}

		var progress struct {
			NextExpectedRanges []string `json:"nextExpectedRanges"`
		}
		err = json.NewDecoder(resp.Body).Decode(&progress)
		resp.Body.Close()

		next := end + 1
		if err == nil && len(progress.NextExpectedRanges) > 0 {
			from, _, _ := strings.Cut(progress.NextExpectedRanges[0], "-")
			if n, convErr := strconv.Atoi(from); convErr == nil {
				next = n
			}
		}
		if next <= start {
			return fmt.Errorf("%w: no progress at byte %d", ErrUploadSession, start)
		}
		start = next
	}
	return nil
}

// do sends a JSON request to the Graph API and decodes a JSON response into
// out when out is non-nil.
func (u *Uploader) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload) == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
