package mailmerge

import (
	"fmt"

	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

// Validation is the outcome of ValidateRecord.
type Validation struct {
	Valid  bool
	Reason string
}

// ValidateRecord checks that a mapped record has at least one recipient, that
// every address in "to" is well formed and that "subject" is not empty.
func ValidateRecord(r MappedRecord) Validation {
	raw := r.String(FieldTo)
	to := ParseAddressList(raw)
	if len(to) == 0 {
		return Validation{Reason: "No recipient email address provided"}
	}
	for _, addr := range to {
		if !mailer.ValidateEmail(addr) {
			return Validation{Reason: fmt.Sprintf("Invalid email address in list %s", raw)}
		}
	}

	if r.String(FieldSubject) == "" {
		return Validation{Reason: "No subject provided"}
	}

	return Validation{Valid: true}
}
