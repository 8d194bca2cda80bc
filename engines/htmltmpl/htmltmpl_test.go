package htmltmpl_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/engines/htmltmpl"
)

func TestEngine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "email.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>Hi {{.name}}, {{range .items}}{{.}} {{end}}</p>`), 0o600))

	e, err := htmltmpl.New(mailmerge.EngineOptions{htmltmpl.OptionTemplatePath: path})
	require.NoError(t, err)

	_, err = e.ExtractFields()
	require.ErrorIs(t, err, mailmerge.ErrTemplateNotLoaded)

	ctx := context.Background()
	require.NoError(t, e.LoadTemplate(ctx))
	require.NoError(t, e.LoadTemplate(ctx))

	fields, err := e.ExtractFields()
	require.NoError(t, err)
	assert.Equal(t, []string{"items", "name"}, fields.Sorted())

	record := mailmerge.MappedRecord{"name": "<Ada>", "items": []string{"a", "b"}}
	previews, err := e.RenderPreview(ctx, record)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, htmltmpl.PreviewName, previews[0].Name)
	assert.Equal(t, "<p>Hi &lt;Ada&gt;, a b </p>", previews[0].Content)
	assert.Equal(t, path, previews[0].Metadata["templatePath"])

	again, err := e.RerenderPreviews(ctx, previews, record)
	require.NoError(t, err)
	assert.Equal(t, previews, again)

	_, err = e.RerenderPreviews(ctx, nil, record)
	require.ErrorIs(t, err, mailmerge.ErrMissingPreview)

	html, err := e.HTMLToSend(ctx, previews, record)
	require.NoError(t, err)
	assert.Equal(t, previews[0].Content, html)

	_, err = e.RenderPreview(ctx, mailmerge.MappedRecord{"name": "x"})
	require.Error(t, err)
}

func TestNew_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := htmltmpl.New(nil)
	require.ErrorIs(t, err, mailmerge.ErrInvalidEngineOptions)
}

func TestEngine_RerenderWarnsAboutEditedPreview(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "email.html")
	require.NoError(t, os.WriteFile(path, []byte(`<p>Hi {{.name}}</p>`), 0o600))

	var logs bytes.Buffer
	e, err := htmltmpl.NewConstructor(slog.New(slog.NewTextHandler(&logs, nil)))(
		mailmerge.EngineOptions{htmltmpl.OptionTemplatePath: path})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.LoadTemplate(ctx))

	record := mailmerge.MappedRecord{"name": "Ada"}
	previews, err := e.RenderPreview(ctx, record)
	require.NoError(t, err)

	_, err = e.RerenderPreviews(ctx, previews, record)
	require.NoError(t, err)
	assert.Empty(t, logs.String())

	edited := mailmerge.TemplatePreviews{previews[0]}
	edited[0].Content = "<p>Hi Ada, see you Monday</p>"
	again, err := e.RerenderPreviews(ctx, edited, record)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi Ada</p>", again[0].Content)
	assert.Contains(t, logs.String(), "discarding hand edits")
}

func TestEngine_NumbersCompare(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "email.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{if gt .count 5}}many{{else}}few{{end}}`), 0o600))

	e, err := htmltmpl.New(mailmerge.EngineOptions{htmltmpl.OptionTemplatePath: path})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.LoadTemplate(ctx))

	previews, err := e.RenderPreview(ctx, mailmerge.MappedRecord{"count": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, "many", previews[0].Content)
}
