package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/internal/cli"
)

func TestPrompter_Ask(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	p := cli.NewPrompter(strings.NewReader("\n  custom  \nlast"), out)

	v, err := p.Ask("Run name", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", v)
	assert.Contains(t, out.String(), "Run name [default]: ")

	v, err = p.Ask("Run name", "default")
	require.NoError(t, err)
	assert.Equal(t, "custom", v)

	v, err = p.Ask("Unterminated", "")
	require.NoError(t, err)
	assert.Equal(t, "last", v)

	_, err = p.Ask("Nothing left", "x")
	require.Error(t, err)
}

func TestPrompter_Confirm(t *testing.T) {
	t.Parallel()

	p := cli.NewPrompter(strings.NewReader("yes\nYes, send emails\n"), &bytes.Buffer{})
	ctx := context.Background()

	ok, err := p.Confirm(ctx, "About to send", mailmerge.ConfirmSendPhrase)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Confirm(ctx, "About to send", mailmerge.ConfirmSendPhrase)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrompter_MapFields(t *testing.T) {
	t.Parallel()

	// Sorted headers: Email, extra, name, notes.
	p := cli.NewPrompter(strings.NewReader("to\n=\n\n\n"), &bytes.Buffer{})
	m, err := p.MapFields(context.Background(),
		mailmerge.NewFieldSet("to", "subject", "name"),
		mailmerge.NewFieldSet("Email", "extra", "name", "notes"),
	)
	require.NoError(t, err)
	assert.Equal(t, mailmerge.Mapping{"Email": "to", "extra": "extra", "name": "name"}, m)
}

func TestPrompter_AttachmentKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	headers := mailmerge.NewFieldSet("to", "Attachment1", "attachment2")

	keys, err := cli.NewPrompter(strings.NewReader("\n"), &bytes.Buffer{}).AttachmentKeys(ctx, headers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Attachment1", "attachment2"}, keys)

	keys, err = cli.NewPrompter(strings.NewReader("-\n"), &bytes.Buffer{}).AttachmentKeys(ctx, headers)
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = cli.NewPrompter(strings.NewReader(" a , ,b\n"), &bytes.Buffer{}).AttachmentKeys(ctx, headers)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestPrompter_Namer(t *testing.T) {
	t.Parallel()

	p := cli.NewPrompter(strings.NewReader("\n"), &bytes.Buffer{})
	namer, err := p.Namer(context.Background(), mailmerge.NewFieldSet("to"),
		[]mailmerge.RawRecord{{"to": "ada@example.com"}})
	require.NoError(t, err)
	assert.NotEmpty(t, namer(mailmerge.MappedRecord{"to": "ada@example.com"}))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := cli.LoadConfig(t.TempDir() + "/missing.env")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.PreviewAddr)
	assert.Equal(t, 587, cfg.SMTP.Port)
}
