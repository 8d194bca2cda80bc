package mailmerge_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

func TestSend(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cv := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(cv, []byte("resume"), 0o600))

	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada", "Bob")}}
	backend.stored[0].AttachmentPaths = []string{cv}

	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, "from@example.com", []string{"ada@example.com"}, "Hi Ada", "<p>Hello Ada</p>",
		mock.MatchedBy(func(a []mailer.Attachment) bool {
			return len(a) == 1 && a[0].Filename == "cv.txt" && string(a[0].Content) == "resume"
		}),
		mailer.Recipients{CC: []string{"boss@example.com"}, BCC: []string{"audit@example.com"}},
	).Return(nil).Once()
	tr.On("SendMail", mock.Anything, "from@example.com", []string{"bob@example.com"}, "Hi Bob", "<p>Hello Bob</p>",
		mock.Anything, mock.Anything,
	).Return(nil).Once()

	var warning, phrase string
	report, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:  registryWith(&fakeEngine{}),
			Transport: tr,
			From:      "from@example.com",
			Confirmer: mailmerge.ConfirmFunc(func(_ context.Context, w, p string) (bool, error) {
				warning, phrase = w, p
				return true, nil
			}),
		},
	})
	require.NoError(t, err)
	tr.AssertExpectations(t)

	assert.Equal(t, &mailmerge.DispatchReport{Eligible: 2, Dispatched: 2}, report)
	assert.Equal(t, []string{"0:smtp-sent", "1:smtp-sent"}, backend.actions)
	assert.Equal(t, mailmerge.ConfirmSendPhrase, phrase)
	assert.Contains(t, warning, "send 2 email(s)")
	assert.Contains(t, warning, "6s")
}

func TestSend_OnlySendZero(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada")}}
	tr := &mockTransport{}

	_, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(engine),
			Transport:     tr,
			OnlySend:      intPtr(0),
			DisablePrompt: true,
		},
	})
	require.ErrorIs(t, err, mailmerge.ErrNothingToSend)
	tr.AssertNotCalled(t, "SendMail")
	assert.Empty(t, backend.actions)
	assert.Zero(t, engine.htmlCalls)
}

func TestSend_TestMode(t *testing.T) {
	t.Parallel()

	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada", "Bob", "Cy")}}
	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, "", []string{"t@example.com"},
		mock.MatchedBy(func(s string) bool { return strings.HasPrefix(s, "(TEST) Hi ") }),
		mock.Anything, mock.Anything, mailer.Recipients{},
	).Return(nil).Twice()

	report, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:  registryWith(&fakeEngine{}),
			Transport: tr,
			OnlySend:  intPtr(2),
			Confirmer: allow(),
		},
		TestSendTo: "t@example.com",
	})
	require.NoError(t, err)
	tr.AssertExpectations(t)
	assert.Equal(t, 2, report.Dispatched)
	assert.Equal(t, 3, report.Eligible)
	assert.Empty(t, backend.actions)
}

func TestSend_TestModeRequiresLimit(t *testing.T) {
	t.Parallel()

	_, err := mailmerge.Send(context.Background(), &memBackend{}, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{Transport: &mockTransport{}, DisablePrompt: true},
		TestSendTo:      "t@example.com",
	})
	require.ErrorIs(t, err, mailmerge.ErrTestModeRequiresLimit)
}

func TestSend_CapInclusive(t *testing.T) {
	t.Parallel()

	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada", "Bob", "Cy")}}
	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	report, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(&fakeEngine{}),
			Transport:     tr,
			OnlySend:      intPtr(1),
			DisablePrompt: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	tr.AssertNumberOfCalls(t, "SendMail", 1)
	assert.Equal(t, []string{"0:smtp-sent"}, backend.actions)
}

func TestSend_UnknownEngineSkipped(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{}
	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada", "Bob")}}
	backend.stored[0].Engine.Name = "react"

	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, mock.Anything, []string{"bob@example.com"}, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	report, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(engine),
			Transport:     tr,
			DisablePrompt: true,
		},
	})
	require.NoError(t, err)
	tr.AssertExpectations(t)
	assert.Equal(t, &mailmerge.DispatchReport{Eligible: 1, Dispatched: 1, Skipped: 1}, report)
	assert.Equal(t, 1, engine.htmlCalls)
	assert.Equal(t, []string{"1:smtp-sent"}, backend.actions)
}

func TestSend_TransportErrorAborts(t *testing.T) {
	t.Parallel()

	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada", "Bob")}}
	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errBoom).Once()

	report, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(&fakeEngine{}),
			Transport:     tr,
			DisablePrompt: true,
		},
	})
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, report.Dispatched)
	tr.AssertNumberOfCalls(t, "SendMail", 1)
	assert.Empty(t, backend.actions)
}

func TestSend_NotConfirmed(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{}
	_, err := mailmerge.Send(context.Background(), &memBackend{stored: stored("Ada")}, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:  registryWith(&fakeEngine{}),
			Transport: tr,
			Confirmer: mailmerge.ConfirmFunc(func(context.Context, string, string) (bool, error) { return false, nil }),
		},
	})
	require.ErrorIs(t, err, mailmerge.ErrNotConfirmed)
	tr.AssertNotCalled(t, "SendMail")
}

func TestSend_MissingAttachmentBeforeDispatch(t *testing.T) {
	t.Parallel()

	backend := &memBackend{stored: stored("Ada", "Bob")}
	backend.stored[1].AttachmentPaths = []string{filepath.Join(t.TempDir(), "missing.pdf")}
	tr := &mockTransport{}

	_, err := mailmerge.Send(context.Background(), backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(&fakeEngine{}),
			Transport:     tr,
			DisablePrompt: true,
		},
	})
	require.ErrorIs(t, err, mailmerge.ErrAttachmentMissing)
	tr.AssertNotCalled(t, "SendMail")
}

func TestSend_SleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	backend := &memBackend{stored: stored("Ada", "Bob")}
	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	start := time.Now()
	report, err := mailmerge.Send(ctx, backend, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(&fakeEngine{}),
			Transport:     tr,
			Sleep:         time.Hour,
			DisablePrompt: true,
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Dispatched)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestSend_MissingConfirmer(t *testing.T) {
	t.Parallel()

	_, err := mailmerge.Send(context.Background(), &memBackend{}, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{Transport: &mockTransport{}},
	})
	require.ErrorIs(t, err, mailmerge.ErrInvalidOptions)
}

func TestSend_InvalidSender(t *testing.T) {
	t.Parallel()

	_, err := mailmerge.Send(context.Background(), &memBackend{}, mailmerge.SendOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Transport:     &mockTransport{},
			From:          "Me <not-an-address>",
			DisablePrompt: true,
		},
	})
	require.ErrorIs(t, err, mailmerge.ErrInvalidOptions)
}

func TestUploadDrafts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	spec := filepath.Join(dir, "inline.json")
	require.NoError(t, os.WriteFile(spec,
		[]byte(`[{"filename":"logo.png","path":"`+filepath.ToSlash(logo)+`","cid":"logo"}]`), 0o600))

	backend := &actingBackend{memBackend: memBackend{stored: stored("Ada")}}
	tr := &mockTransport{}
	tr.On("SendMail", mock.Anything, mock.Anything, []string{"ada@example.com"}, "Hi Ada", mock.Anything,
		mock.MatchedBy(func(a []mailer.Attachment) bool {
			return len(a) == 1 && a[0].ContentID == "logo" && a[0].Inline()
		}),
		mock.Anything,
	).Return(nil).Once()

	var verified bool
	var phrase string
	report, err := mailmerge.UploadDrafts(context.Background(), backend, mailmerge.UploadOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:     registryWith(&fakeEngine{}),
			Transport:    tr,
			InlineImages: spec,
			Confirmer: mailmerge.ConfirmFunc(func(_ context.Context, _, p string) (bool, error) {
				phrase = p
				return true, nil
			}),
		},
		Verify: func(context.Context) error {
			verified = true
			return nil
		},
	})
	require.NoError(t, err)
	tr.AssertExpectations(t)
	assert.True(t, verified)
	assert.Equal(t, mailmerge.ConfirmUploadPhrase, phrase)
	assert.Equal(t, 1, report.Dispatched)
	assert.Equal(t, []string{"0:drafts-uploaded"}, backend.actions)
}

func TestUploadDrafts_VerifyFailureStopsBeforeUpload(t *testing.T) {
	t.Parallel()

	tr := &mockTransport{}
	_, err := mailmerge.UploadDrafts(context.Background(), &memBackend{stored: stored("Ada")}, mailmerge.UploadOptions{
		DispatchOptions: mailmerge.DispatchOptions{
			Registry:      registryWith(&fakeEngine{}),
			Transport:     tr,
			DisablePrompt: true,
		},
		Verify: func(context.Context) error { return errBoom },
	})
	require.ErrorIs(t, err, errBoom)
	tr.AssertNotCalled(t, "SendMail")
}
