package mailer

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// AttachmentFromFile reads path into an Attachment named after its base name.
// Content type comes from the extension, falling back to content sniffing.
func AttachmentFromFile(path string) (Attachment, error) {
	return attachmentFromFile(path, filepath.Base(path), "")
}

// InlineAttachmentFromFile reads path into an inline Attachment with the given
// display filename and Content-ID.
func InlineAttachmentFromFile(filename, path, cid string) (Attachment, error) {
	return attachmentFromFile(path, filename, cid)
}

func attachmentFromFile(path, filename, cid string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("%w: %s: %w", ErrAttachmentRead, path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return Attachment{
		Filename:    filename,
		ContentType: contentType,
		ContentID:   cid,
		Content:     data,
	}, nil
}

// AttachmentsFromFiles reads every path with AttachmentFromFile.
func AttachmentsFromFiles(paths []string) ([]Attachment, error) {
	out := make([]Attachment, 0, len(paths))
	for _, p := range paths {
		a, err := AttachmentFromFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
