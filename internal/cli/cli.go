// Package cli implements the mailmerge command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/engines"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// ErrUsage reports invalid arguments. The message has already been printed.
var ErrUsage = errors.New("invalid usage")

// TransportFactory builds the transport a send run delivers through.
type TransportFactory func(ctx context.Context, cfg Config, name string) (mailmerge.Transport, error)

// App holds the process streams and the replaceable collaborators of the
// commands.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Registry     mailmerge.Registry
	NewTransport TransportFactory

	// EnvFiles are loaded before the environment is parsed.
	EnvFiles []string

	cfg    Config
	log    *slog.Logger
	prompt *Prompter
}

// Run executes the command named by args[0].
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := &App{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return app.Run(ctx, args)
}

type command struct {
	name  string
	usage string
	run   func(app *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"init", "init [dir]  scaffold a workspace", (*App).runInit},
	{"generate", "generate [flags]  render previews from a data source", (*App).runGenerate},
	{"regenerate", "regenerate [flags] <dir>  rebuild previews after editing", (*App).runRegenerate},
	{"send", "send [flags] <dir>  send pending previews", (*App).runSend},
	{"upload-drafts", "upload-drafts [flags] <dir>  upload pending previews as Outlook drafts", (*App).runUploadDrafts},
	{"serve", "serve [flags] <dir>  browse pending previews", (*App).runServe},
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}

	idx := slices.IndexFunc(commands, func(c command) bool { return c.name == args[0] })
	if idx < 0 {
		fmt.Fprintf(a.Stderr, "unknown command %q\n\n", args[0])
		a.usage()
		return ErrUsage
	}
	cmd := commands[idx]

	cfg, err := LoadConfig(a.EnvFiles...)
	if err != nil {
		return err
	}
	if cfg.Logger.Output == nil {
		cfg.Logger.Output = a.Stderr
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Logger)
	a.prompt = NewPrompter(a.Stdin, a.Stdout)
	if a.Registry == nil {
		a.Registry = engines.New(a.log)
	}
	if a.NewTransport == nil {
		a.NewTransport = defaultTransport
	}

	ctx = logger.WithRunID(ctx, uuid.NewString())
	ctx = logger.WithCommand(ctx, cmd.name)

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if !errors.Is(err, ErrUsage) {
			a.log.ErrorContext(ctx, "command failed", logger.Err(err))
		}
		return err
	}
	return nil
}

func (a *App) usage() {
	fmt.Fprintln(a.Stderr, "usage: mailmerge <command> [flags]")
	fmt.Fprintln(a.Stderr)
	for _, c := range commands {
		fmt.Fprintf(a.Stderr, "  %s\n", c.usage)
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	return fs
}

// parse parses args and returns the positional arguments, of which there
// must be exactly want (or any number when want < 0).
func (a *App) parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrUsage
		}
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	rest := fs.Args()
	if want >= 0 && len(rest) != want {
		fmt.Fprintf(a.Stderr, "%s: expected %d argument(s), got %d\n", fs.Name(), want, len(rest))
		fs.Usage()
		return nil, ErrUsage
	}
	return rest, nil
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// optionalInt is an int flag that distinguishes "not set" from zero.
type optionalInt struct {
	v *int
}

func (o *optionalInt) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.Itoa(*o.v)
}

func (o *optionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.v = &n
	return nil
}
