package preview

import (
	"context"
	"html/template"
	"iter"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/sanitizer"
	"github.com/dmitrymomot/mailmerge/sidecar"
)

// Source lists the pending results of a preview directory.
type Source interface {
	LoadAll(ctx context.Context) iter.Seq2[*sidecar.Result, error]
}

// Entry is one pending email on the index page.
type Entry struct {
	Name        string
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Engine      string
	Attachments []string
}

type handler struct {
	src      Source
	registry mailmerge.Registry
	log      *slog.Logger
}

// NewRouter returns the review UI: an index of pending emails and a page per
// email showing the sanitised HTML that would be sent.
func NewRouter(src Source, registry mailmerge.Registry, log *slog.Logger) http.Handler {
	if log == nil {
		log = logger.NewNope()
	}
	h := &handler{src: src, registry: registry, log: log}

	r := chi.NewRouter()
	r.Use(RequestID, Recover(log))
	r.Get("/", h.index)
	r.Get("/emails/{name}", h.email)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	var entries []Entry
	for res, err := range h.src.LoadAll(r.Context()) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		entries = append(entries, entryOf(res))
	}
	h.render(w, r, indexTemplate, entries)
}

func (h *handler) email(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var found *sidecar.Result
	for res, err := range h.src.LoadAll(r.Context()) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if res.StorageMetadata.Data.Name == name {
			found = res
			break
		}
	}
	if found == nil {
		http.NotFound(w, r)
		return
	}

	body, err := h.html(r.Context(), found.MergeResult)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, emailTemplate, struct {
		Entry
		Body template.HTML
	}{
		Entry: entryOf(found),
		Body:  template.HTML(sanitizer.SanitizeHTML(body)), //nolint:gosec // sanitised above
	})
}

func (h *handler) html(ctx context.Context, res mailmerge.MergeResult) (string, error) {
	engine, err := h.registry.New(res.Engine.Name, res.Engine.Options)
	if err != nil {
		return "", err
	}
	if err := engine.LoadTemplate(ctx); err != nil {
		return "", err
	}
	return engine.HTMLToSend(ctx, res.Previews, res.Record)
}

func (h *handler) render(w http.ResponseWriter, r *http.Request, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		h.log.ErrorContext(r.Context(), "render preview page", logger.Err(err),
			slog.String("request_id", RequestIDFromContext(r.Context())))
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.ErrorContext(r.Context(), "preview request failed", logger.Err(err),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFromContext(r.Context())))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func entryOf(res *sidecar.Result) Entry {
	return Entry{
		Name:        res.StorageMetadata.Data.Name,
		To:          res.Email.To,
		CC:          res.Email.CC,
		BCC:         res.Email.BCC,
		Subject:     res.Email.Subject,
		Engine:      res.Engine.Name,
		Attachments: res.AttachmentPaths,
	}
}
