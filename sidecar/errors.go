package sidecar

import "errors"

var (
	ErrNoNamer        = errors.New("sidecar: no record namer configured")
	ErrInvalidName    = errors.New("sidecar: invalid record name")
	ErrCorruptSidecar = errors.New("sidecar: corrupt sidecar")
	ErrUnknownMode    = errors.New("sidecar: unknown post-action mode")
)
