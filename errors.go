package mailmerge

import "errors"

var (
	// ErrLoad marks a record source that is empty, unreadable or malformed.
	ErrLoad = errors.New("mailmerge: failed to load records")

	// ErrTemplateNotLoaded is returned by engines used before LoadTemplate.
	ErrTemplateNotLoaded = errors.New("mailmerge: template not loaded")

	// ErrDuplicateMapping means two headers map to the same template field.
	ErrDuplicateMapping = errors.New("mailmerge: duplicate field mapping")

	ErrUnknownEngine         = errors.New("mailmerge: unknown template engine")
	ErrInvalidEngineOptions  = errors.New("mailmerge: invalid template engine options")
	ErrMissingPreview        = errors.New("mailmerge: expected preview missing")
	ErrNothingToSend         = errors.New("mailmerge: nothing to send")
	ErrNotConfirmed          = errors.New("mailmerge: dispatch not confirmed")
	ErrInvalidInlineImages   = errors.New("mailmerge: invalid inline images spec")
	ErrTestModeRequiresLimit = errors.New("mailmerge: test mode requires a send limit")
	ErrInvalidOptions        = errors.New("mailmerge: invalid options")
	ErrAttachmentMissing     = errors.New("mailmerge: attachment not found")
)
