package sidecar

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/mailer"
	"github.com/dmitrymomot/mailmerge/pkg/slug"
)

const maxNameLength = 100

// DynamicNamer builds a Namer once the input of a run is known, e.g. by
// asking the user which fields to name files after.
type DynamicNamer func(ctx context.Context, headers mailmerge.FieldSet, records []mailmerge.RawRecord) (Namer, error)

// TemplateNamer names records by executing pattern, a text/template over the
// mapped record, and slugifying the result. Missing and null fields render
// empty.
func TemplateNamer(pattern string) (Namer, error) {
	tmpl, err := template.New("name").Option("missingkey=zero").Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	fields := mailer.TemplateFields(tmpl)

	return func(record mailmerge.MappedRecord) string {
		data := make(map[string]any, len(record)+len(fields))
		for k, v := range record {
			data[k] = v
		}
		for _, f := range fields {
			if data[f] == nil {
				data[f] = ""
			}
		}

		var b strings.Builder
		if err := tmpl.Execute(&b, data); err != nil {
			return ""
		}
		return slug.Make(b.String(), slug.MaxLength(maxNameLength))
	}, nil
}

// FieldNamer names records after the slug of field.
func FieldNamer(field string) Namer {
	return func(record mailmerge.MappedRecord) string {
		return slug.Make(record.String(field), slug.MaxLength(maxNameLength))
	}
}
