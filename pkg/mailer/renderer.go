package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"sync"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer expands markdown templates with YAML frontmatter and wraps the
// resulting HTML in a layout. Parsed templates and layouts are cached;
// rendered output never is.
type Renderer struct {
	templates fs.FS
	layouts   fs.FS
	md        goldmark.Markdown

	templateCache map[string]*cachedTemplate
	layoutCache   map[string]*template.Template
	mu            sync.RWMutex
}

type cachedTemplate struct {
	metadata map[string]any
	tmpl     *texttemplate.Template
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLayouts reads layouts from fsys instead of the template filesystem.
func WithLayouts(fsys fs.FS) RendererOption {
	return func(r *Renderer) { r.layouts = fsys }
}

// WithMarkdown replaces the markdown converter.
func WithMarkdown(md goldmark.Markdown) RendererOption {
	return func(r *Renderer) { r.md = md }
}

// NewRenderer creates a Renderer reading templates (and, by default, layouts)
// from templates.
func NewRenderer(templates fs.FS, opts ...RendererOption) *Renderer {
	r := &Renderer{
		templates:     templates,
		layouts:       templates,
		md:            NewMarkdown(),
		templateCache: make(map[string]*cachedTemplate),
		layoutCache:   make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewMarkdown returns the markdown converter used for email bodies: raw HTML
// passes through, bare URLs are linked, single newlines become <br>, and
// [!button|Label](url) renders a button.
func NewMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.Table,
			extension.Strikethrough,
			NewButtonExtension(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
}

// RenderResult holds the output of Render.
type RenderResult struct {
	Metadata map[string]any
	Markdown string // template body after expansion, before HTML conversion
	HTML     string
}

// Render expands the named template with data and wraps it in layout.
func (r *Renderer) Render(layout, name string, data any) (*RenderResult, error) {
	markdown, err := r.Expand(name, data)
	if err != nil {
		return nil, err
	}
	cached, err := r.getTemplate(name)
	if err != nil {
		return nil, err
	}
	out, err := r.Wrap(layout, markdown, cached.metadata)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Metadata: cached.metadata,
		Markdown: markdown,
		HTML:     out,
	}, nil
}

// Expand executes the named template against data and returns the markdown.
// Referencing a key missing from a map is an error.
func (r *Renderer) Expand(name string, data any) (string, error) {
	cached, err := r.getTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := cached.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: failed to execute template: %w", ErrRenderFailed, err)
	}
	return buf.String(), nil
}

// Wrap converts markdown to HTML and executes layout with
// {Content, Metadata}. Content is trusted HTML.
func (r *Renderer) Wrap(layout, markdown string, metadata map[string]any) (string, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("%w: failed to convert markdown: %w", ErrRenderFailed, err)
	}

	layoutTmpl, err := r.getLayout(layout)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	err = layoutTmpl.Execute(&out, map[string]any{
		"Content":  template.HTML(body.String()),
		"Metadata": metadata,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute layout: %w", ErrRenderFailed, err)
	}
	return out.String(), nil
}

// Metadata returns the frontmatter of the named template.
func (r *Renderer) Metadata(name string) (map[string]any, error) {
	cached, err := r.getTemplate(name)
	if err != nil {
		return nil, err
	}
	return cached.metadata, nil
}

// Fields returns the top-level data keys the named template references.
func (r *Renderer) Fields(name string) ([]string, error) {
	cached, err := r.getTemplate(name)
	if err != nil {
		return nil, err
	}
	return TemplateFields(cached.tmpl), nil
}

func (r *Renderer) getTemplate(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	cached, ok := r.templateCache[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.templateCache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.templates, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, name, err)
	}

	parsed, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}

	tmpl, err := texttemplate.New(name).Option("missingkey=error").Parse(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse template body: %w", ErrRenderFailed, err)
	}

	cached = &cachedTemplate{metadata: parsed.Metadata, tmpl: tmpl}
	r.templateCache[name] = cached
	return cached, nil
}

func (r *Renderer) getLayout(name string) (*template.Template, error) {
	r.mu.RLock()
	cached, ok := r.layoutCache[name]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.layoutCache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.layouts, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLayoutNotFound, name, err)
	}

	layoutTmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse layout: %w", ErrRenderFailed, err)
	}

	r.layoutCache[name] = layoutTmpl
	return layoutTmpl, nil
}
