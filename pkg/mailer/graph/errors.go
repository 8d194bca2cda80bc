package graph

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("graph: tenant id and client id are required")
	ErrMailboxMismatch    = errors.New("graph: authenticated mailbox does not match")
	ErrUploadSession      = errors.New("graph: attachment upload session failed")
)

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("graph: HTTP %d", e.Status)
	}
	return fmt.Sprintf("graph: HTTP %d: %s: %s", e.Status, e.Code, e.Message)
}
