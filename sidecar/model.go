package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrymomot/mailmerge"
)

const (
	partsSeparator = "__"

	// MetadataSuffix ends the name of every sidecar file.
	MetadataSuffix = "-metadata.json"
)

// Namer names a record. The name prefixes every file of the record.
type Namer func(record mailmerge.MappedRecord) string

// RecordPrefix returns the name shared by every file of record.
func RecordPrefix(record mailmerge.MappedRecord, namer Namer) string {
	return namer(record)
}

// PreviewFilename returns the content file name of one preview, e.g.
// "file_1__nunjucks__preview1".
func PreviewFilename(record mailmerge.MappedRecord, namer Namer, engine, preview string) string {
	return previewFilename(RecordPrefix(record, namer), engine, preview)
}

// MetadataFilename returns the sidecar file name of record.
func MetadataFilename(record mailmerge.MappedRecord, namer Namer) string {
	return RecordPrefix(record, namer) + MetadataSuffix
}

func previewFilename(prefix, engine, preview string) string {
	return strings.Join([]string{prefix, engine, preview}, partsSeparator)
}

// PreviewMetadata is a preview without its content.
type PreviewMetadata struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// PreviewContent is the content of a preview, stored as Filename.
type PreviewContent struct {
	Filename string
	Content  string
}

// File links a content file to the preview it holds.
type File struct {
	Filename   string          `json:"filename"`
	EngineData PreviewMetadata `json:"engineData"`
}

// Data is the persisted form of a merge result.
type Data struct {
	Name          string                  `json:"name"`
	Record        mailmerge.MappedRecord  `json:"record"`
	Engine        string                  `json:"engine"`
	EngineOptions mailmerge.EngineOptions `json:"engineOptions"`
	Files         []File                  `json:"files"`
	Email         mailmerge.EmailData     `json:"email"`
	Attachments   []string                `json:"attachments"`
}

// Split separates a result into its sidecar and the content files, both in
// preview order.
func Split(prefix string, r mailmerge.MergeResult) (Data, []PreviewContent) {
	d := Data{
		Name:          prefix,
		Record:        r.Record,
		Engine:        r.Engine.Name,
		EngineOptions: r.Engine.Options,
		Files:         make([]File, len(r.Previews)),
		Email:         r.Email,
		Attachments:   r.AttachmentPaths,
	}
	if d.Attachments == nil {
		d.Attachments = []string{}
	}

	contents := make([]PreviewContent, len(r.Previews))
	for i, p := range r.Previews {
		name := previewFilename(prefix, r.Engine.Name, p.Name)
		d.Files[i] = File{
			Filename:   name,
			EngineData: PreviewMetadata{Name: p.Name, Metadata: p.Metadata},
		}
		contents[i] = PreviewContent{Filename: name, Content: p.Content}
	}
	return d, contents
}

// Join rebuilds the merge result from a sidecar and its content files.
func (d Data) Join(contents []PreviewContent) (mailmerge.MergeResult, error) {
	if len(contents) != len(d.Files) {
		return mailmerge.MergeResult{}, fmt.Errorf("%w: %s: %d files, %d contents",
			ErrCorruptSidecar, d.Name, len(d.Files), len(contents))
	}

	previews := make(mailmerge.TemplatePreviews, len(d.Files))
	for i, f := range d.Files {
		if contents[i].Filename != f.Filename {
			return mailmerge.MergeResult{}, fmt.Errorf("%w: %s: expected %s, got %s",
				ErrCorruptSidecar, d.Name, f.Filename, contents[i].Filename)
		}
		previews[i] = mailmerge.TemplatePreview{
			Name:     f.EngineData.Name,
			Content:  contents[i].Content,
			Metadata: f.EngineData.Metadata,
		}
	}

	return mailmerge.MergeResult{
		Record:          d.Record,
		Previews:        previews,
		Engine:          mailmerge.EngineInfo{Name: d.Engine, Options: d.EngineOptions},
		AttachmentPaths: d.Attachments,
		Email:           d.Email,
	}, nil
}

// Marshal encodes the sidecar as indented JSON.
func (d Data) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "    ")
}

// Unmarshal decodes a sidecar. Numbers in the record and preview metadata
// decode as int64 when integral and float64 otherwise.
func Unmarshal(data []byte) (Data, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var d Data
	if err := dec.Decode(&d); err != nil {
		return Data{}, fmt.Errorf("%w: %w", ErrCorruptSidecar, err)
	}
	for k, v := range d.Record {
		d.Record[k] = mailmerge.CanonicalJSON(v)
	}
	for _, f := range d.Files {
		for k, v := range f.EngineData.Metadata {
			f.EngineData.Metadata[k] = mailmerge.CanonicalJSON(v)
		}
	}
	return d, nil
}
