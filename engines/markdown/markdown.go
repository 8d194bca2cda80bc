// Package markdown is a template engine for markdown emails. A template is a
// Go text/template over markdown with optional YAML frontmatter; the expanded
// markdown is kept as an editable preview and converted to HTML inside a root
// layout.
package markdown

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// Name is the registry name of the engine.
const Name = "markdown"

// Option keys.
const (
	OptionTemplatePath     = "templatePath"
	OptionRootHTMLTemplate = "rootHtmlTemplate"
)

// Preview names and types.
const (
	PreviewMarkdown = "Preview-Markdown.md"
	PreviewHTML     = "Preview-HTML.html"

	TypeMarkdown = "markdown"
	TypeHTML     = "html"
)

const defaultLayout = "layouts/default.html"

//go:embed layouts/default.html
var layouts embed.FS

// Engine renders markdown templates.
type Engine struct {
	templatePath string
	layoutPath   string

	renderer *mailer.Renderer
	template string
	layout   string
	metadata map[string]any
}

// New is the mailmerge.EngineConstructor of the engine. templatePath is
// required; rootHtmlTemplate defaults to a minimal built-in layout.
func New(opts mailmerge.EngineOptions) (mailmerge.TemplateEngine, error) {
	e := &Engine{
		templatePath: opts[OptionTemplatePath],
		layoutPath:   opts[OptionRootHTMLTemplate],
	}
	if e.templatePath == "" {
		return nil, fmt.Errorf("%w: %s is required", mailmerge.ErrInvalidEngineOptions, OptionTemplatePath)
	}
	return e, nil
}

// LoadTemplate parses the template and the layout.
func (e *Engine) LoadTemplate(_ context.Context) error {
	if e.renderer != nil {
		return nil
	}

	var (
		layoutFS fs.FS = layouts
		layout         = defaultLayout
	)
	if e.layoutPath != "" {
		layoutFS = os.DirFS(filepath.Dir(e.layoutPath))
		layout = filepath.Base(e.layoutPath)
	}

	name := filepath.Base(e.templatePath)
	r := mailer.NewRenderer(os.DirFS(filepath.Dir(e.templatePath)), mailer.WithLayouts(layoutFS))

	metadata, err := r.Metadata(name)
	if err != nil {
		return err
	}
	if _, err := r.Wrap(layout, "", metadata); err != nil {
		return err
	}

	e.renderer, e.template, e.layout, e.metadata = r, name, layout, metadata
	return nil
}

// ExtractFields returns the top-level fields the template references.
func (e *Engine) ExtractFields() (mailmerge.FieldSet, error) {
	if e.renderer == nil {
		return nil, mailmerge.ErrTemplateNotLoaded
	}
	fields, err := e.renderer.Fields(e.template)
	if err != nil {
		return nil, err
	}
	return mailmerge.NewFieldSet(fields...), nil
}

// RenderPreview expands the template into markdown and wraps it into HTML.
func (e *Engine) RenderPreview(_ context.Context, record mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	if e.renderer == nil {
		return nil, mailmerge.ErrTemplateNotLoaded
	}
	md, err := e.renderer.Expand(e.template, map[string]any(record))
	if err != nil {
		return nil, err
	}
	return e.previews(md)
}

// RerenderPreviews rebuilds the HTML from the stored, possibly edited,
// markdown preview.
func (e *Engine) RerenderPreviews(_ context.Context, old mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	if e.renderer == nil {
		return nil, mailmerge.ErrTemplateNotLoaded
	}
	md, ok := old.ByType(TypeMarkdown)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mailmerge.ErrMissingPreview, PreviewMarkdown)
	}
	if _, ok := old.ByType(TypeHTML); !ok {
		return nil, fmt.Errorf("%w: %s", mailmerge.ErrMissingPreview, PreviewHTML)
	}
	return e.previews(md.Content)
}

// HTMLToSend returns the HTML preview as stored.
func (e *Engine) HTMLToSend(_ context.Context, previews mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (string, error) {
	html, ok := previews.ByType(TypeHTML)
	if !ok {
		return "", fmt.Errorf("%w: %s", mailmerge.ErrMissingPreview, PreviewHTML)
	}
	if html.Content == "" {
		return "", errors.New("markdown: html preview is empty")
	}
	return html.Content, nil
}

func (e *Engine) previews(md string) (mailmerge.TemplatePreviews, error) {
	html, err := e.renderer.Wrap(e.layout, md, e.metadata)
	if err != nil {
		return nil, err
	}
	return mailmerge.TemplatePreviews{
		{Name: PreviewMarkdown, Content: md, Metadata: map[string]any{"type": TypeMarkdown}},
		{Name: PreviewHTML, Content: html, Metadata: map[string]any{"type": TypeHTML}},
	}, nil
}
