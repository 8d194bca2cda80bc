// Package engines wires the built-in template engines into a registry.
package engines

import (
	"log/slog"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/engines/htmltmpl"
	"github.com/dmitrymomot/mailmerge/engines/markdown"
)

// Default returns a registry with every built-in engine.
func Default() mailmerge.Registry {
	return New(nil)
}

// New returns a registry with every built-in engine, logging to log.
func New(log *slog.Logger) mailmerge.Registry {
	return mailmerge.Registry{
		markdown.Name: markdown.New,
		htmltmpl.Name: htmltmpl.NewConstructor(log),
	}
}
