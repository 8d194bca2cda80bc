package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	t.Cleanup(srv.Close)

	client := resend.NewClient("re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	s := NewWithClient(client, Config{SenderEmail: "events@example.com", SenderName: "Events"})
	err = s.Send(context.Background(), &mailer.Email{
		To:      []string{"ada@example.com"},
		BCC:     []string{"audit@example.com"},
		Subject: "Invite",
		HTML:    "<p>Hi</p>",
		Attachments: []mailer.Attachment{
			{Filename: "logo.png", ContentType: "image/png", ContentID: "logo", Content: []byte("png")},
		},
	})
	require.NoError(t, err)

	require.Equal(t, `"Events" <events@example.com>`, got["from"])
	require.Equal(t, "Invite", got["subject"])
	require.Equal(t, []any{"audit@example.com"}, got["bcc"])
	require.Len(t, got["attachments"], 1)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSender_Send_NoFrom(t *testing.T) {
	t.Parallel()

	s := NewWithClient(resend.NewClient("re_test"), Config{})
	err := s.Send(context.Background(), &mailer.Email{To: []string{"a@example.com"}, Subject: "s", HTML: "h"})
	require.ErrorIs(t, err, mailer.ErrNoSender)
}
