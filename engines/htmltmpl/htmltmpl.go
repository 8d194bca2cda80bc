// Package htmltmpl is a template engine that executes an html/template file
// directly. Its single preview is the final HTML.
package htmltmpl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	texttemplate "text/template"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// Name is the registry name of the engine.
const Name = "html"

const (
	OptionTemplatePath = "templatePath"

	PreviewName = "Rendered-Email.html"
	TypeHTML    = "html-template"

	// metaContentHash holds the hash of the preview as rendered.
	metaContentHash = "contentHash"
)

// Engine renders HTML templates.
type Engine struct {
	path string
	log  *slog.Logger

	mu     sync.Mutex
	tmpl   *template.Template
	fields []string
}

// New is the mailmerge.EngineConstructor of the engine.
func New(opts mailmerge.EngineOptions) (mailmerge.TemplateEngine, error) {
	return NewConstructor(nil)(opts)
}

// NewConstructor returns a constructor whose engines log to log. A nil
// logger discards output.
func NewConstructor(log *slog.Logger) mailmerge.EngineConstructor {
	if log == nil {
		log = logger.NewNope()
	}
	return func(opts mailmerge.EngineOptions) (mailmerge.TemplateEngine, error) {
		path := opts[OptionTemplatePath]
		if path == "" {
			return nil, fmt.Errorf("%w: %s is required", mailmerge.ErrInvalidEngineOptions, OptionTemplatePath)
		}
		return &Engine{path: path, log: log}, nil
	}
}

// LoadTemplate reads and parses the template file. Missing keys are errors.
func (e *Engine) LoadTemplate(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tmpl != nil {
		return nil
	}

	content, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", mailer.ErrTemplateNotFound, e.path, err)
	}
	tmpl, err := template.New(filepath.Base(e.path)).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return fmt.Errorf("%w: %w", mailer.ErrRenderFailed, err)
	}

	// TemplateFields walks text/template trees.
	textTmpl, err := texttemplate.New("fields").Parse(string(content))
	if err != nil {
		return fmt.Errorf("%w: %w", mailer.ErrRenderFailed, err)
	}

	e.tmpl, e.fields = tmpl, mailer.TemplateFields(textTmpl)
	return nil
}

func (e *Engine) loaded() (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tmpl == nil {
		return nil, mailmerge.ErrTemplateNotLoaded
	}
	return e.tmpl, nil
}

// ExtractFields returns the top-level fields the template references.
func (e *Engine) ExtractFields() (mailmerge.FieldSet, error) {
	if _, err := e.loaded(); err != nil {
		return nil, err
	}
	return mailmerge.NewFieldSet(e.fields...), nil
}

// RenderPreview executes the template against record.
func (e *Engine) RenderPreview(_ context.Context, record mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	tmpl, err := e.loaded()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(record)); err != nil {
		return nil, fmt.Errorf("%w: %w", mailer.ErrRenderFailed, err)
	}
	return mailmerge.TemplatePreviews{{
		Name:    PreviewName,
		Content: buf.String(),
		Metadata: map[string]any{
			"type":          TypeHTML,
			"templatePath":  e.path,
			metaContentHash: contentHash(buf.String()),
		},
	}}, nil
}

// RerenderPreviews executes the template again. The stored HTML is output
// only: edits belong in the template file, and a hand-edited preview is
// replaced with a warning.
func (e *Engine) RerenderPreviews(ctx context.Context, old mailmerge.TemplatePreviews, record mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	stored, ok := old.ByType(TypeHTML)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mailmerge.ErrMissingPreview, PreviewName)
	}
	fresh, err := e.RenderPreview(ctx, record)
	if err != nil {
		return nil, err
	}
	if edited(stored, fresh[0]) {
		e.log.WarnContext(ctx, "discarding hand edits to the html preview, edit the template instead",
			slog.String("preview", PreviewName),
			slog.String("template", e.path),
		)
	}
	return fresh, nil
}

// edited reports whether stored was changed after rendering. Previews
// without a recorded hash are compared with the fresh render.
func edited(stored, fresh mailmerge.TemplatePreview) bool {
	if h, ok := stored.Metadata[metaContentHash].(string); ok {
		return h != contentHash(stored.Content)
	}
	return stored.Content != fresh.Content
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HTMLToSend returns the stored preview.
func (e *Engine) HTMLToSend(_ context.Context, previews mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (string, error) {
	p, ok := previews.ByType(TypeHTML)
	if !ok {
		return "", fmt.Errorf("%w: %s", mailmerge.ErrMissingPreview, PreviewName)
	}
	return p.Content, nil
}
