package mailmerge

import (
	"context"
	"fmt"
	"slices"
)

// TemplateEngine renders records into previews and previews into the HTML
// that is finally sent.
type TemplateEngine interface {
	// LoadTemplate reads and parses the template. It is idempotent and must
	// precede every other call.
	LoadTemplate(ctx context.Context) error

	// ExtractFields returns the fields the template references.
	ExtractFields() (FieldSet, error)

	RenderPreview(ctx context.Context, record MappedRecord) (TemplatePreviews, error)

	// RerenderPreviews rebuilds previews from the editable subset of old.
	// A missing expected preview is an error.
	RerenderPreviews(ctx context.Context, old TemplatePreviews, record MappedRecord) (TemplatePreviews, error)

	// HTMLToSend derives the message body without modifying previews.
	HTMLToSend(ctx context.Context, previews TemplatePreviews, record MappedRecord) (string, error)
}

// EngineConstructor builds an engine from persisted options.
type EngineConstructor func(opts EngineOptions) (TemplateEngine, error)

// Registry maps engine names to constructors.
type Registry map[string]EngineConstructor

// New constructs the engine registered as name.
func (r Registry) New(name string, opts EngineOptions) (TemplateEngine, error) {
	ctor, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return ctor(opts)
}

// Names returns the registered engine names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// loadEngine constructs and loads the engine a stored result was rendered with.
func (r Registry) loadEngine(ctx context.Context, info EngineInfo) (TemplateEngine, error) {
	engine, err := r.New(info.Name, info.Options)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadTemplate(ctx); err != nil {
		return nil, fmt.Errorf("load template for engine %q: %w", info.Name, err)
	}
	return engine, nil
}
