package mailer

import (
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEmail reports whether addr is a syntactically valid bare email address.
func ValidateEmail(addr string) bool {
	if addr == "" || strings.TrimSpace(addr) != addr {
		return false
	}
	return validate.Var(addr, "required,email") == nil
}

// ValidateFromLine reports whether s is a valid sender line, either a bare
// address or "Name" <address>.
func ValidateFromLine(s string) bool {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return ValidateEmail(a.Address)
}
