// Package logger provides structured logging for mailmerge runs.
//
// It wraps log/slog with three additions: a handler decorator that injects
// run-scoped attributes (such as the run ID and the current command) from the
// context, a fan-out handler for writing to several destinations, and optional
// Sentry reporting for warnings and errors.
//
// # Basic Usage
//
//	log := logger.New(logger.Config{Level: "debug", Format: "text"})
//
//	ctx := logger.WithRunID(context.Background(), "01HZX...")
//	log.InfoContext(ctx, "loading records", slog.String("source", "data/people.csv"))
//	// time=... level=INFO msg="loading records" source=data/people.csv run_id=01HZX...
//
// # Sentry
//
// When Config.SentryDSN is set, warnings and errors are also forwarded to Sentry.
// If the DSN is empty or Sentry fails to initialise, logging silently falls back to
// the console handler only.
//
// # Library Code
//
// Pipeline functions accept a *slog.Logger and default to NewNope when none is
// given, so embedding programs stay quiet unless they opt in.
package logger
