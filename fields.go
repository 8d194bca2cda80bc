package mailmerge

import "slices"

// Reserved fields every merge maps in addition to the template's own.
const (
	FieldTo      = "to"
	FieldSubject = "subject"
	FieldCC      = "cc"
	FieldBCC     = "bcc"
)

// FieldSet is a set of field or header names.
type FieldSet map[string]struct{}

// NewFieldSet returns a set holding names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	s.Add(names...)
	return s
}

// Add inserts names.
func (s FieldSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports whether name is in the set.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s FieldSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set with the names of s and o.
func (s FieldSet) Union(o FieldSet) FieldSet {
	out := make(FieldSet, len(s)+len(o))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range o {
		out[n] = struct{}{}
	}
	return out
}

// Features toggles optional reserved fields for one run.
type Features struct {
	CC  bool
	BCC bool
}

// ReservedFields returns the reserved fields mapped in a run with f enabled.
func (f Features) ReservedFields() FieldSet {
	s := NewFieldSet(FieldTo, FieldSubject)
	if f.CC {
		s.Add(FieldCC)
	}
	if f.BCC {
		s.Add(FieldBCC)
	}
	return s
}
