package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/sidecar"
)

// Answers that skip a header or pass it through under its own name.
const (
	answerSkip   = "-"
	answerAsIs   = "="
	defaultNamer = "{{.to}}"
)

// Prompter asks questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer, or def when the
// answer is empty.
func (p *Prompter) Ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}
	return def, nil
}

// Confirm implements mailmerge.Confirmer: the answer must equal phrase.
func (p *Prompter) Confirm(_ context.Context, warning, phrase string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s\n", warning)
	answer, err := p.Ask(fmt.Sprintf("Type %q to continue", phrase), "")
	if err != nil {
		return false, err
	}
	return answer == phrase, nil
}

// MapFields asks, header by header, which template field it fills. The
// default is the field of the same name, or skipping the header.
func (p *Prompter) MapFields(_ context.Context, fields, headers mailmerge.FieldSet) (mailmerge.Mapping, error) {
	fmt.Fprintf(p.out, "Template fields: %s\n", strings.Join(fields.Sorted(), ", "))
	fmt.Fprintf(p.out, "Answer with a field name, %q to pass the column as-is or %q to skip it.\n", answerAsIs, answerSkip)

	m := mailmerge.Mapping{}
	for _, h := range headers.Sorted() {
		def := answerSkip
		if fields.Has(h) {
			def = h
		}
		answer, err := p.Ask(fmt.Sprintf("Column %q maps to", h), def)
		if err != nil {
			return nil, err
		}
		switch answer {
		case answerSkip:
		case answerAsIs:
			m[h] = h
		default:
			m[h] = answer
		}
	}
	return m, nil
}

// AttachmentKeys asks which columns hold attachment paths. Columns starting
// with "attachment" are suggested.
func (p *Prompter) AttachmentKeys(_ context.Context, headers mailmerge.FieldSet) ([]string, error) {
	var suggested []string
	for _, h := range headers.Sorted() {
		if strings.HasPrefix(strings.ToLower(h), "attachment") {
			suggested = append(suggested, h)
		}
	}

	answer, err := p.Ask("Columns holding attachment paths (comma separated, '-' for none)",
		cmpDefault(strings.Join(suggested, ","), answerSkip))
	if err != nil {
		return nil, err
	}
	if answer == answerSkip {
		return []string{}, nil
	}
	return splitList(answer), nil
}

// Namer asks for the file name pattern of the run, showing the first record
// as an example.
func (p *Prompter) Namer(_ context.Context, headers mailmerge.FieldSet, records []mailmerge.RawRecord) (sidecar.Namer, error) {
	if len(records) > 0 {
		fmt.Fprintf(p.out, "Columns: %s\nFirst record: %v\n", strings.Join(headers.Sorted(), ", "), records[0])
	}
	pattern, err := p.Ask("File name pattern over template fields", defaultNamer)
	if err != nil {
		return nil, err
	}
	return sidecar.TemplateNamer(pattern)
}

func cmpDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
