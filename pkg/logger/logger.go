package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls console logging and optional Sentry forwarding.
type Config struct {
	Level             string `env:"MAILMERGE_LOG_LEVEL" envDefault:"info"`
	Format            string `env:"MAILMERGE_LOG_FORMAT" envDefault:"text"` // text or json
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`

	// Output defaults to os.Stderr so stdout stays free for prompts.
	Output io.Writer `env:"-"`
}

// New creates a logger from cfg with optional context extractors.
// The run ID extractor is always installed.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var console slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		console = slog.NewJSONHandler(out, opts)
	} else {
		console = slog.NewTextHandler(out, opts)
	}

	extractors = append([]ContextExtractor{RunIDExtractor, CommandExtractor}, extractors...)

	handler := console
	if cfg.SentryDSN != "" {
		handler = withSentry(console, cfg)
	}

	return slog.New(NewLogHandlerDecorator(handler, extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Used as the default when a caller does not supply a logger.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to slog.Level. Unknown names resolve to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Err returns the conventional error attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
