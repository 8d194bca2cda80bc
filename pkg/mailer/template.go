package mailer

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Template is a template file split into frontmatter metadata and body.
type Template struct {
	Metadata map[string]any
	Body     string
}

var frontmatterFence = []byte("---")

// ParseTemplate splits an optional YAML frontmatter block, fenced by lines
// consisting of "---", from the template body.
func ParseTemplate(content []byte) (*Template, error) {
	first, rest, _ := cutLine(content)
	if !bytes.Equal(bytes.TrimRight(first, " \t"), frontmatterFence) {
		return &Template{Metadata: map[string]any{}, Body: string(content)}, nil
	}

	var front [][]byte
	for {
		var (
			line []byte
			ok   bool
		)
		line, rest, ok = cutLine(rest)
		if bytes.Equal(bytes.TrimRight(line, " \t"), frontmatterFence) {
			break
		}
		if !ok {
			return nil, fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
		}
		front = append(front, line)
	}

	metadata := map[string]any{}
	if raw := bytes.Join(front, []byte("\n")); len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &metadata); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFrontmatter, err)
		}
	}

	return &Template{Metadata: metadata, Body: string(rest)}, nil
}

// cutLine returns the first line of b without its terminator (\n or \r\n),
// the remainder, and whether a terminator was found.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	line, rest, ok = bytes.Cut(b, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, ok
}
