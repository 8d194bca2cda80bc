package mailmerge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/mailmerge/pkg/mailer"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// InlineImage is one entry of an inline images file.
type InlineImage struct {
	Filename string `json:"filename" validate:"required"`
	Path     string `json:"path"     validate:"required"`
	CID      string `json:"cid"      validate:"required"`
}

// ParseInlineImages decodes a JSON array of inline images. Every entry must
// carry filename, path and cid as non-empty strings.
func ParseInlineImages(data []byte) ([]InlineImage, error) {
	var images []InlineImage
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInlineImages, err)
	}
	for i, img := range images {
		if err := validate.Struct(img); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidInlineImages, i, err)
		}
	}
	return images, nil
}

// LoadInlineImages reads the inline images file at path and the images it
// lists, producing attachments embedded in every message.
func LoadInlineImages(path string) ([]mailer.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInlineImages, err)
	}
	images, err := ParseInlineImages(data)
	if err != nil {
		return nil, err
	}

	out := make([]mailer.Attachment, 0, len(images))
	for _, img := range images {
		a, err := mailer.InlineAttachmentFromFile(img.Filename, img.Path, img.CID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInlineImages, err)
		}
		out = append(out, a)
	}
	return out, nil
}
