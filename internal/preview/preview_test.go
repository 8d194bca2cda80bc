package preview_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/internal/preview"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/sidecar"
)

type stubEngine struct{}

func (stubEngine) LoadTemplate(context.Context) error { return nil }

func (stubEngine) ExtractFields() (mailmerge.FieldSet, error) { return mailmerge.NewFieldSet(), nil }

func (stubEngine) RenderPreview(context.Context, mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	return nil, nil
}

func (stubEngine) RerenderPreviews(_ context.Context, old mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (mailmerge.TemplatePreviews, error) {
	return old, nil
}

func (stubEngine) HTMLToSend(_ context.Context, p mailmerge.TemplatePreviews, _ mailmerge.MappedRecord) (string, error) {
	return p[0].Content, nil
}

var registry = mailmerge.Registry{
	"stub": func(mailmerge.EngineOptions) (mailmerge.TemplateEngine, error) { return stubEngine{}, nil },
}

type stubSource struct {
	results []*sidecar.Result
	err     error
}

func (s stubSource) LoadAll(context.Context) iter.Seq2[*sidecar.Result, error] {
	return func(yield func(*sidecar.Result, error) bool) {
		if s.err != nil {
			yield(nil, s.err)
			return
		}
		for _, r := range s.results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func result(name, to, subject, body string) *sidecar.Result {
	return &sidecar.Result{
		MergeResult: mailmerge.MergeResult{
			Record:   mailmerge.MappedRecord{"to": to, "subject": subject},
			Previews: mailmerge.TemplatePreviews{{Name: "body.html", Content: body}},
			Engine:   mailmerge.EngineInfo{Name: "stub"},
			Email:    mailmerge.EmailData{To: []string{to}, Subject: subject},
		},
		StorageMetadata: sidecar.Metadata{Data: sidecar.Data{Name: name}},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Index(t *testing.T) {
	t.Parallel()

	h := preview.NewRouter(stubSource{results: []*sidecar.Result{
		result("ada", "ada@example.com", "Hello Ada", "<p>hi</p>"),
		result("bob", "bob@example.com", "Hello Bob", "<p>hi</p>"),
	}}, registry, nil)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "2 pending email(s)")
	assert.Contains(t, body, `href="/emails/ada"`)
	assert.Contains(t, body, "bob@example.com")
	assert.NotEmpty(t, rec.Header().Get(preview.RequestIDHeader))
}

func TestRouter_EmailIsSanitised(t *testing.T) {
	t.Parallel()

	h := preview.NewRouter(stubSource{results: []*sidecar.Result{
		result("ada", "ada@example.com", "Hello Ada", `<p style="color:red">Hi Ada</p><script>alert(1)</script>`),
	}}, registry, nil)

	rec := get(t, h, "/emails/ada")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Hi Ada")
	assert.Contains(t, body, "Hello Ada")
	assert.NotContains(t, body, "<script>")
}

func TestRouter_EmailNotFound(t *testing.T) {
	t.Parallel()

	h := preview.NewRouter(stubSource{}, registry, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/emails/nobody").Code)
}

func TestRouter_LoadError(t *testing.T) {
	t.Parallel()

	h := preview.NewRouter(stubSource{err: errors.New("corrupt sidecar")}, registry, nil)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/").Code)
}

func TestRouter_UnknownEngine(t *testing.T) {
	t.Parallel()

	r := result("ada", "ada@example.com", "Hello", "<p>x</p>")
	r.Engine.Name = "nunjucks"
	h := preview.NewRouter(stubSource{results: []*sidecar.Result{r}}, registry, nil)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/emails/ada").Code)
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	t.Parallel()

	var seen string
	h := preview.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = preview.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(preview.RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(preview.RequestIDHeader))
}

func TestRecover(t *testing.T) {
	t.Parallel()

	h := preview.Recover(slogDiscard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- preview.Serve(ctx, "127.0.0.1:0", preview.NewRouter(stubSource{}, registry, nil),
			preview.WithOnListen(func(a net.Addr) { addrCh <- a }),
			preview.WithShutdownTimeout(time.Second),
		)
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func slogDiscard() *slog.Logger { return logger.NewNope() }
