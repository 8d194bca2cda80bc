package mailmerge

import "context"

// Confirmation phrases the user must type before dispatch starts.
const (
	ConfirmSendPhrase   = "Yes, send emails"
	ConfirmUploadPhrase = "Yes, upload emails"
)

// Confirmer asks the operator to approve an irreversible dispatch by typing
// phrase after reading warning.
type Confirmer interface {
	Confirm(ctx context.Context, warning, phrase string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, warning, phrase string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, warning, phrase string) (bool, error) {
	return f(ctx, warning, phrase)
}
