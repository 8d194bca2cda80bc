package mailmerge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Mapping translates record headers to template fields.
type Mapping map[string]string

// MappingResolver builds a Mapping once per run, e.g. by prompting the user.
type MappingResolver func(ctx context.Context, templateFields, headers FieldSet) (Mapping, error)

// AttachmentKeysResolver picks the headers whose values are attachment paths.
type AttachmentKeysResolver func(ctx context.Context, headers FieldSet) ([]string, error)

// Project renames mapped headers of raw and drops the rest.
func (m Mapping) Project(raw RawRecord) MappedRecord {
	out := make(MappedRecord, len(m))
	for header, field := range m {
		if v, ok := raw[header]; ok {
			out[field] = v
		}
	}
	return out
}

// Targets returns the set of template fields the mapping produces.
func (m Mapping) Targets() FieldSet {
	s := make(FieldSet, len(m))
	for _, f := range m {
		s.Add(f)
	}
	return s
}

// IdentityMapping maps every header that is also a template field to itself.
func IdentityMapping(templateFields, headers FieldSet) Mapping {
	m := Mapping{}
	for h := range headers {
		if templateFields.Has(h) {
			m[h] = h
		}
	}
	return m
}

// ResolveMapping returns static when set, otherwise asks resolve, otherwise
// maps same-named headers. Two headers targeting one field is fatal; template
// fields nothing maps to are logged and left for validation to reject.
func ResolveMapping(
	ctx context.Context,
	static Mapping,
	resolve MappingResolver,
	templateFields, headers FieldSet,
	log *slog.Logger,
) (Mapping, error) {
	m := static
	switch {
	case m != nil:
	case resolve != nil:
		var err error
		if m, err = resolve(ctx, templateFields, headers); err != nil {
			return nil, fmt.Errorf("resolve field mapping: %w", err)
		}
	default:
		m = IdentityMapping(templateFields, headers)
	}

	if err := checkMapping(m); err != nil {
		return nil, err
	}

	targets := m.Targets()
	for _, f := range templateFields.Sorted() {
		if !targets.Has(f) {
			log.Warn("template field is not mapped to any header", slog.String("field", f))
		}
	}
	return m, nil
}

func checkMapping(m Mapping) error {
	headers := make([]string, 0, len(m))
	for h := range m {
		headers = append(headers, h)
	}
	slices.Sort(headers)

	seen := make(map[string]string, len(m))
	for _, h := range headers {
		f := m[h]
		if prev, ok := seen[f]; ok {
			return fmt.Errorf("%w: %q and %q both map to %q", ErrDuplicateMapping, prev, h, f)
		}
		seen[f] = h
	}
	return nil
}

// AttachmentResolver yields the attachment paths of one record.
type AttachmentResolver func(raw RawRecord) []string

// ResolveAttachments builds the per-record attachment lookup. A fixed list
// applies to every record and overrides keys. Otherwise each key names a
// header whose value in the raw record is a path; empty values are skipped.
func ResolveAttachments(
	ctx context.Context,
	fixed []string,
	keys []string,
	resolve AttachmentKeysResolver,
	headers FieldSet,
	log *slog.Logger,
) (AttachmentResolver, error) {
	if len(fixed) > 0 {
		paths := slices.Clone(fixed)
		return func(RawRecord) []string { return slices.Clone(paths) }, nil
	}

	if keys == nil && resolve != nil {
		var err error
		if keys, err = resolve(ctx, headers); err != nil {
			return nil, fmt.Errorf("resolve attachment keys: %w", err)
		}
	}

	known := make([]string, 0, len(keys))
	for _, k := range keys {
		if !headers.Has(k) {
			log.Warn("attachment key is not a record header", slog.String("key", k))
			continue
		}
		known = append(known, k)
	}

	return func(raw RawRecord) []string {
		var paths []string
		for _, k := range known {
			if p := stringValue(raw[k]); p != "" {
				paths = append(paths, p)
			}
		}
		return paths
	}, nil
}
