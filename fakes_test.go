package mailmerge_test

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// fakeEngine renders "Hello {{name}}" style previews without parsing templates.
type fakeEngine struct {
	fields    []string
	loadErr   error
	failFor   string // record name that fails to render
	mu        sync.Mutex
	loaded    bool
	rerenders int
	htmlCalls int
}

func (e *fakeEngine) LoadTemplate(context.Context) error {
	if e.loadErr != nil {
		return e.loadErr
	}
	e.mu.Lock()
	e.loaded = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) ExtractFields() (mailmerge.FieldSet, error) {
	if !e.loaded {
		return nil, mailmerge.ErrTemplateNotLoaded
	}
	return mailmerge.NewFieldSet(e.fields...), nil
}

func (e *fakeEngine) RenderPreview(_ context.Context, r mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	name := r.String("name")
	if e.failFor != "" && name == e.failFor {
		return nil, fmt.Errorf("render %s: missing value", name)
	}
	return mailmerge.TemplatePreviews{
		{Name: "body.md", Content: "Hello " + name, Metadata: map[string]any{"type": "markdown"}},
		{Name: "body.html", Content: "<p>Hello " + name + "</p>", Metadata: map[string]any{"type": "html"}},
	}, nil
}

func (e *fakeEngine) RerenderPreviews(_ context.Context, old mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	e.mu.Lock()
	e.rerenders++
	e.mu.Unlock()
	md, ok := old.ByType("markdown")
	if !ok {
		return nil, mailmerge.ErrMissingPreview
	}
	return mailmerge.TemplatePreviews{
		md,
		{Name: "body.html", Content: "<p>" + md.Content + "</p>", Metadata: map[string]any{"type": "html"}},
	}, nil
}

func (e *fakeEngine) HTMLToSend(_ context.Context, previews mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (string, error) {
	e.mu.Lock()
	e.htmlCalls++
	e.mu.Unlock()
	html, ok := previews.ByType("html")
	if !ok {
		return "", mailmerge.ErrMissingPreview
	}
	return html.Content, nil
}

func registryWith(e *fakeEngine) mailmerge.Registry {
	return mailmerge.Registry{
		"fake": func(mailmerge.EngineOptions) (mailmerge.TemplateEngine, error) { return e, nil },
	}
}

type staticSource struct {
	set *mailmerge.RecordSet
	err error
}

func (s staticSource) LoadRecords(context.Context) (*mailmerge.RecordSet, error) {
	return s.set, s.err
}

// memBackend keeps results in memory; index metadata is the position.
type memBackend struct {
	stored  []mailmerge.MergeResult
	input   *mailmerge.RecordSet
	updated []*mailmerge.MergeResultWithMetadata[int]
	loadErr error
	fresh   int
}

func (b *memBackend) StoreFresh(_ context.Context, results []mailmerge.MergeResult, input *mailmerge.RecordSet) error {
	b.fresh++
	b.stored = results
	b.input = input
	return nil
}

func (b *memBackend) LoadAll(context.Context) iter.Seq2[*mailmerge.MergeResultWithMetadata[int], error] {
	return func(yield func(*mailmerge.MergeResultWithMetadata[int], error) bool) {
		if b.loadErr != nil {
			yield(nil, b.loadErr)
			return
		}
		for i, r := range b.stored {
			if !yield(&mailmerge.MergeResultWithMetadata[int]{MergeResult: r, StorageMetadata: i}, nil) {
				return
			}
		}
	}
}

func (b *memBackend) StoreUpdated(_ context.Context, results []*mailmerge.MergeResultWithMetadata[int]) error {
	b.updated = results
	return nil
}

// actingBackend records post-actions.
type actingBackend struct {
	memBackend
	actions []string
}

func (b *actingBackend) PostAction(_ context.Context, r *mailmerge.MergeResultWithMetadata[int], mode mailmerge.PostActionMode) error {
	b.actions = append(b.actions, fmt.Sprintf("%d:%s", r.StorageMetadata, mode))
	return nil
}

// mockTransport is a mock implementation of Transport.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendMail(
	ctx context.Context,
	from string,
	to []string,
	subject, html string,
	attachments []mailer.Attachment,
	rcpt mailer.Recipients,
) error {
	args := m.Called(ctx, from, to, subject, html, attachments, rcpt)
	return args.Error(0)
}

func stored(names ...string) []mailmerge.MergeResult {
	out := make([]mailmerge.MergeResult, 0, len(names))
	for _, n := range names {
		rec := mailmerge.MappedRecord{
			"name":    n,
			"to":      strings.ToLower(n) + "@example.com",
			"cc":      "boss@example.com",
			"bcc":     "audit@example.com",
			"subject": "Hi " + n,
		}
		out = append(out, mailmerge.MergeResult{
			Record: rec,
			Previews: mailmerge.TemplatePreviews{
				{Name: "body.md", Content: "Hello " + n, Metadata: map[string]any{"type": "markdown"}},
				{Name: "body.html", Content: "<p>Hello " + n + "</p>", Metadata: map[string]any{"type": "html"}},
			},
			Engine: mailmerge.EngineInfo{Name: "fake", Options: mailmerge.EngineOptions{"templatePath": "t.md"}},
			Email:  mailmerge.NewEmailData(rec),
		})
	}
	return out
}

func allow() mailmerge.Confirmer {
	return mailmerge.ConfirmFunc(func(context.Context, string, string) (bool, error) { return true, nil })
}

func intPtr(v int) *int { return &v }

var errBoom = errors.New("boom")
