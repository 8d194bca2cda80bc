package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/graph"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/resend"
	"github.com/dmitrymomot/mailmerge/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailmerge/pkg/storage"
	"github.com/dmitrymomot/mailmerge/sidecar"
)

// Transport names accepted by send --transport.
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
)

func defaultTransport(_ context.Context, cfg Config, name string) (mailmerge.Transport, error) {
	switch name {
	case TransportSMTP:
		s, err := smtp.New(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		return mailer.New(s), nil
	case TransportResend:
		s, err := resend.New(cfg.Resend)
		if err != nil {
			return nil, err
		}
		return mailer.New(s), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrUsage, name)
	}
}

// openBackend opens the sidecar backend over a preview location.
func (a *App) openBackend(ctx context.Context, location string) (*sidecar.Backend, error) {
	store, err := storage.Open(ctx, location, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	return sidecar.New(store, sidecar.WithLogger(a.log)), nil
}

func (a *App) runRegenerate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("regenerate")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	backend, err := a.openBackend(ctx, rest[0])
	if err != nil {
		return err
	}

	report, err := mailmerge.Rerender(ctx, backend, mailmerge.RerenderOptions{
		Registry: a.Registry,
		Logger:   a.log,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "Regenerated %d preview(s), skipped %d.\n", report.Processed, report.Skipped)
	return nil
}

type dispatchFlags struct {
	only   optionalInt
	sleep  time.Duration
	inline string
	yes    bool
}

func (f *dispatchFlags) register(fs *flag.FlagSet) {
	fs.Var(&f.only, "only", "send at most this many emails")
	fs.DurationVar(&f.sleep, "sleep", 0, "pause between two emails")
	fs.StringVar(&f.inline, "inline-images", "", "inline images file embedded in every email")
	fs.BoolVar(&f.yes, "yes", false, "skip the confirmation prompt")
}

func (a *App) dispatchOptions(f dispatchFlags, transport mailmerge.Transport, from string) mailmerge.DispatchOptions {
	return mailmerge.DispatchOptions{
		Registry:      a.Registry,
		Transport:     transport,
		From:          from,
		OnlySend:      f.only.v,
		Sleep:         f.sleep,
		InlineImages:  f.inline,
		DisablePrompt: f.yes,
		Confirmer:     a.prompt,
		Logger:        a.log,
	}
}

func (a *App) runSend(ctx context.Context, args []string) error {
	var (
		f         dispatchFlags
		testTo    string
		transport string
		from      string
	)
	fs := a.newFlagSet("send")
	f.register(fs)
	fs.StringVar(&testTo, "test-to", "", "redirect every email to this address (requires --only)")
	fs.StringVar(&transport, "transport", TransportSMTP, "delivery: smtp|resend")
	fs.StringVar(&from, "from", "", "sender line (default from MAILMERGE_SENDER_NAME and MAILMERGE_SENDER_EMAIL)")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	if from == "" && a.cfg.SMTP.SenderEmail != "" {
		from = mailer.FromLine(a.cfg.SMTP.SenderName, a.cfg.SMTP.SenderEmail)
	}

	backend, err := a.openBackend(ctx, rest[0])
	if err != nil {
		return err
	}
	t, err := a.NewTransport(ctx, a.cfg, transport)
	if err != nil {
		return err
	}

	report, err := mailmerge.Send(ctx, backend, mailmerge.SendOptions{
		DispatchOptions: a.dispatchOptions(f, t, from),
		TestSendTo:      testTo,
	})
	a.printDispatch("Sent", report)
	return err
}

func (a *App) runUploadDrafts(ctx context.Context, args []string) error {
	var (
		f          dispatchFlags
		mailbox    string
		deviceCode bool
	)
	fs := a.newFlagSet("upload-drafts")
	f.register(fs)
	fs.StringVar(&mailbox, "mailbox", a.cfg.Graph.Mailbox, "mailbox receiving the drafts")
	fs.BoolVar(&deviceCode, "device-code", false, "sign in interactively even when a client secret is set")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	if mailbox == "" {
		return fmt.Errorf("%w: --mailbox or GRAPH_MAILBOX is required", ErrUsage)
	}

	backend, err := a.openBackend(ctx, rest[0])
	if err != nil {
		return err
	}

	uploader, err := a.graphUploader(ctx, mailbox, deviceCode)
	if err != nil {
		return err
	}

	report, err := mailmerge.UploadDrafts(ctx, backend, mailmerge.UploadOptions{
		DispatchOptions: a.dispatchOptions(f, mailer.New(uploader), mailbox),
		Verify: func(ctx context.Context) error {
			return uploader.VerifyMailbox(ctx, mailbox)
		},
	})
	a.printDispatch("Uploaded", report)
	return err
}

// graphUploader authenticates against Microsoft Graph. Application
// credentials address the mailbox explicitly; a signed-in user uploads to
// their own mailbox, which Verify then checks.
func (a *App) graphUploader(ctx context.Context, mailbox string, deviceCode bool) (*graph.Uploader, error) {
	cfg := a.cfg.Graph
	opts := []graph.Option{
		graph.WithBaseURL(cfg.BaseURL),
		graph.WithOutlookSpacingHack(cfg.SpacingHack),
		graph.WithLogger(a.log),
	}

	if cfg.ClientSecret != "" && !deviceCode {
		client, err := graph.ClientCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return graph.New(client, append(opts, graph.WithMailbox(mailbox))...), nil
	}

	client, err := graph.DeviceCode(ctx, cfg, func(r *oauth2.DeviceAuthResponse) {
		fmt.Fprintf(a.Stdout, "To sign in, open %s and enter the code %s\n", r.VerificationURI, r.UserCode)
	})
	if err != nil {
		return nil, err
	}
	return graph.New(client, opts...), nil
}

func (a *App) printDispatch(verb string, r *mailmerge.DispatchReport) {
	if r == nil {
		return
	}
	fmt.Fprintf(a.Stdout, "%s %d of %d eligible email(s), skipped %d.\n", verb, r.Dispatched, r.Eligible, r.Skipped)
}
