package mailmerge

import (
	"fmt"
	"strings"
)

// RawRecord is one input row keyed by source column.
type RawRecord map[string]any

// MappedRecord is a record keyed by template field.
type MappedRecord map[string]any

// String returns the value of field as text, or "" when absent or nil.
func (r MappedRecord) String(field string) string {
	return stringValue(r[field])
}

func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ParseAddressList splits a whitespace-separated address list.
func ParseAddressList(s string) []string {
	return strings.Fields(s)
}

// EmailData is the addressing of one record, derived once at generation time.
type EmailData struct {
	To      []string `json:"to"`
	CC      []string `json:"cc"`
	BCC     []string `json:"bcc"`
	Subject string   `json:"subject"`
}

// NewEmailData extracts addressing from a validated record.
func NewEmailData(r MappedRecord) EmailData {
	return EmailData{
		To:      ParseAddressList(r.String(FieldTo)),
		CC:      ParseAddressList(r.String(FieldCC)),
		BCC:     ParseAddressList(r.String(FieldBCC)),
		Subject: r.String(FieldSubject),
	}
}

// EngineOptions are the options an engine was constructed with. They are
// persisted so the same engine can be rebuilt later.
type EngineOptions map[string]string

// EngineInfo identifies the engine that rendered a record.
type EngineInfo struct {
	Name    string
	Options EngineOptions
}

// TemplatePreview is one rendered artifact of a record.
type TemplatePreview struct {
	Name     string
	Content  string
	Metadata map[string]any // engine-specific, persisted alongside
}

// Type returns Metadata["type"], the role engines tag previews with.
func (p TemplatePreview) Type() string {
	s, _ := p.Metadata["type"].(string)
	return s
}

// TemplatePreviews is the ordered set of previews of one record.
type TemplatePreviews []TemplatePreview

// ByType returns the first preview with the given Type.
func (ps TemplatePreviews) ByType(t string) (TemplatePreview, bool) {
	for _, p := range ps {
		if p.Type() == t {
			return p, true
		}
	}
	return TemplatePreview{}, false
}

// MergeResult is the unit of work persisted by a storage backend.
type MergeResult struct {
	Record          MappedRecord
	Previews        TemplatePreviews
	Engine          EngineInfo
	AttachmentPaths []string
	Email           EmailData
}

// MergeResultWithMetadata carries backend-specific metadata T that lets the
// backend find the persisted artifacts again.
type MergeResultWithMetadata[T any] struct {
	MergeResult
	StorageMetadata T
}
