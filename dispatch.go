package mailmerge

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// Transport delivers one message. *mailer.Mailer implements it.
type Transport interface {
	SendMail(
		ctx context.Context,
		from string,
		to []string,
		subject, html string,
		attachments []mailer.Attachment,
		rcpt mailer.Recipients,
	) error
}

// TestSubjectPrefix marks messages redirected to a test recipient.
const TestSubjectPrefix = "(TEST) "

// Rough per-message durations used for the confirmation estimate.
const (
	sendEstimate   = 3 * time.Second
	uploadEstimate = 5 * time.Second
)

// DispatchOptions are shared by Send and UploadDrafts.
type DispatchOptions struct {
	Registry  Registry
	Transport Transport

	// From is the sender line; empty uses the transport's default.
	From string

	// OnlySend caps the number of dispatched messages. Nil means no cap.
	OnlySend *int

	// Sleep is the pause between two dispatches.
	Sleep time.Duration

	// InlineImages is the path of an inline images file embedded in every
	// message.
	InlineImages string

	DisablePrompt bool
	Confirmer     Confirmer
	Logger        *slog.Logger
}

// SendOptions configures Send.
type SendOptions struct {
	DispatchOptions

	// TestSendTo redirects every message to this single address. Requires
	// OnlySend and never triggers post-actions.
	TestSendTo string
}

// UploadOptions configures UploadDrafts.
type UploadOptions struct {
	DispatchOptions

	// Verify runs after confirmation and before the first upload, e.g. to
	// check the signed-in mailbox.
	Verify func(ctx context.Context) error
}

// DispatchReport summarises a send or upload run.
type DispatchReport struct {
	Eligible   int
	Dispatched int
	Skipped    int
}

// Send delivers every pending result through the transport and runs the
// backend's post-action with PostActionSMTPSent after each real delivery.
func Send[T any](ctx context.Context, backend StorageBackend[T], opts SendOptions) (*DispatchReport, error) {
	if opts.TestSendTo != "" {
		if opts.OnlySend == nil {
			return nil, ErrTestModeRequiresLimit
		}
		if !mailer.ValidateEmail(opts.TestSendTo) {
			return nil, fmt.Errorf("%w: invalid test recipient %q", ErrInvalidOptions, opts.TestSendTo)
		}
	}
	d := dispatcher[T]{
		opts:     opts.DispatchOptions,
		testTo:   opts.TestSendTo,
		mode:     PostActionSMTPSent,
		phrase:   ConfirmSendPhrase,
		verb:     "send",
		estimate: sendEstimate,
	}
	return d.run(ctx, backend)
}

// UploadDrafts uploads every pending result as a draft and runs the
// backend's post-action with PostActionDraftsUploaded after each upload.
func UploadDrafts[T any](ctx context.Context, backend StorageBackend[T], opts UploadOptions) (*DispatchReport, error) {
	d := dispatcher[T]{
		opts:     opts.DispatchOptions,
		verify:   opts.Verify,
		mode:     PostActionDraftsUploaded,
		phrase:   ConfirmUploadPhrase,
		verb:     "upload",
		estimate: uploadEstimate,
	}
	return d.run(ctx, backend)
}

type dispatcher[T any] struct {
	opts     DispatchOptions
	testTo   string
	verify   func(ctx context.Context) error
	mode     PostActionMode
	phrase   string
	verb     string
	estimate time.Duration
	log      *slog.Logger
}

// pending is a result ready to go out, with its body already derived.
type pending[T any] struct {
	result *MergeResultWithMetadata[T]
	html   string
}

func (d *dispatcher[T]) run(ctx context.Context, backend StorageBackend[T]) (*DispatchReport, error) {
	d.log = d.opts.Logger
	if d.log == nil {
		d.log = logger.NewNope()
	}

	if d.opts.OnlySend != nil && *d.opts.OnlySend <= 0 {
		return nil, ErrNothingToSend
	}
	if d.opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidOptions)
	}
	if d.opts.From != "" && !mailer.ValidateFromLine(d.opts.From) {
		return nil, fmt.Errorf("%w: invalid sender %q", ErrInvalidOptions, d.opts.From)
	}
	if !d.opts.DisablePrompt && d.opts.Confirmer == nil {
		return nil, fmt.Errorf("%w: confirmation is enabled but no confirmer is set", ErrInvalidOptions)
	}

	var inline []mailer.Attachment
	if d.opts.InlineImages != "" {
		var err error
		if inline, err = LoadInlineImages(d.opts.InlineImages); err != nil {
			return nil, err
		}
	}

	report := &DispatchReport{}
	queue, err := d.materialise(ctx, backend, report)
	if err != nil {
		return nil, err
	}
	report.Eligible = len(queue)

	count := len(queue)
	if d.opts.OnlySend != nil {
		count = min(count, *d.opts.OnlySend)
	}
	if count == 0 {
		d.log.InfoContext(ctx, "no emails to "+d.verb)
		return report, nil
	}

	if err := d.confirm(ctx, count); err != nil {
		return nil, err
	}

	if d.verify != nil {
		if err := d.verify(ctx); err != nil {
			return nil, err
		}
	}

	actioner, _ := backend.(PostActioner[T])

	for i, p := range queue {
		if i >= count {
			break
		}

		if err := d.dispatchOne(ctx, p, inline); err != nil {
			return report, err
		}
		report.Dispatched++

		if d.testTo == "" && actioner != nil {
			if err := actioner.PostAction(ctx, p.result, d.mode); err != nil {
				return report, fmt.Errorf("post-action %s: %w", d.mode, err)
			}
		}

		if d.opts.Sleep > 0 && i+1 < count {
			if err := sleep(ctx, d.opts.Sleep); err != nil {
				return report, err
			}
		}
	}

	d.log.InfoContext(ctx, d.verb+" finished",
		slog.Int("dispatched", report.Dispatched),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}

// materialise derives the body of every pending result before anything is
// dispatched. Results whose engine cannot produce HTML are skipped.
func (d *dispatcher[T]) materialise(ctx context.Context, backend StorageBackend[T], report *DispatchReport) ([]pending[T], error) {
	engines := map[string]TemplateEngine{}
	var queue []pending[T]

	for result, err := range backend.LoadAll(ctx) {
		if err != nil {
			return nil, fmt.Errorf("load stored results: %w", err)
		}

		html, err := d.html(ctx, engines, result.MergeResult)
		if err != nil {
			d.log.WarnContext(ctx, "skipping record without sendable html",
				slog.String("engine", result.Engine.Name),
				slog.Any("to", result.Email.To),
				logger.Err(err),
			)
			report.Skipped++
			continue
		}

		for _, path := range result.AttachmentPaths {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrAttachmentMissing, path, err)
			}
		}

		queue = append(queue, pending[T]{result: result, html: html})
	}
	return queue, nil
}

func (d *dispatcher[T]) html(ctx context.Context, engines map[string]TemplateEngine, r MergeResult) (string, error) {
	key := engineKey(r.Engine)
	engine, ok := engines[key]
	if !ok {
		var err error
		if engine, err = d.opts.Registry.loadEngine(ctx, r.Engine); err != nil {
			return "", err
		}
		engines[key] = engine
	}
	return engine.HTMLToSend(ctx, r.Previews, r.Record)
}

func engineKey(info EngineInfo) string {
	var b strings.Builder
	b.WriteString(info.Name)
	for _, k := range slices.Sorted(maps.Keys(info.Options)) {
		b.WriteString("\x00" + k + "=" + info.Options[k])
	}
	return b.String()
}

func (d *dispatcher[T]) confirm(ctx context.Context, count int) error {
	per := d.estimate + d.opts.Sleep
	warning := fmt.Sprintf(
		"About to %s %d email(s). This cannot be undone. Estimated time: %s.",
		d.verb, count, (time.Duration(count) * per).Round(time.Second),
	)
	if d.testTo != "" {
		warning += fmt.Sprintf(" Test mode: every email goes to %s.", d.testTo)
	}
	d.log.WarnContext(ctx, warning, slog.Int("count", count))

	if d.opts.DisablePrompt {
		return nil
	}
	ok, err := d.opts.Confirmer.Confirm(ctx, warning, d.phrase)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", d.verb, err)
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

func (d *dispatcher[T]) dispatchOne(ctx context.Context, p pending[T], inline []mailer.Attachment) error {
	email := p.result.Email
	to, cc, bcc, subject := email.To, email.CC, email.BCC, email.Subject

	if d.testTo != "" {
		to, cc, bcc = []string{d.testTo}, nil, nil
		subject = TestSubjectPrefix + subject

		if len(to) != 1 || to[0] != d.testTo || len(cc) != 0 || len(bcc) != 0 {
			panic("mailmerge: test recipient override not applied")
		}
	}

	files, err := mailer.AttachmentsFromFiles(p.result.AttachmentPaths)
	if err != nil {
		return err
	}
	attachments := append(files, inline...)

	d.log.InfoContext(ctx, d.verb+" email",
		slog.Any("to", to),
		slog.String("subject", subject),
		slog.Int("attachments", len(attachments)),
	)
	if err := d.opts.Transport.SendMail(ctx, d.opts.From, to, subject, p.html, attachments,
		mailer.Recipients{CC: cc, BCC: bcc}); err != nil {
		return fmt.Errorf("%s email to %v: %w", d.verb, to, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
