// Package sanitizer converts rendered email HTML into safe or plain forms.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy  *bluemonday.Policy
	previewPolicy *bluemonday.Policy
	initOnce      sync.Once

	blockBreaks = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|tr|table|blockquote|pre)>`)
	manyBlanks  = regexp.MustCompile(`\n{3,}`)
	lineSpaces  = regexp.MustCompile(`[ \t]+`)
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// Previews keep inline styling and embedded images but no scripts or handlers.
		previewPolicy = bluemonday.UGCPolicy()
		previewPolicy.AllowStyles(
			"color", "background-color", "font-family", "font-size", "font-weight",
			"text-align", "text-decoration", "margin", "padding", "border", "width",
		).Globally()
		previewPolicy.AllowAttrs("width", "height", "align", "bgcolor").Globally()
		previewPolicy.AllowDataURIImages()
		previewPolicy.AllowURLSchemes("http", "https", "mailto", "cid")
	})
}

// PlainText strips every tag and returns readable text suitable for the
// text/plain alternative of an email. Block elements become line breaks.
func PlainText(s string) string {
	initPolicies()

	s = blockBreaks.ReplaceAllStringFunc(s, func(m string) string { return m + "\n" })
	text := html.UnescapeString(strictPolicy.Sanitize(s))

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(lineSpaces.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(manyBlanks.ReplaceAllString(text, "\n\n"))
}

// SanitizeHTML removes active content from an email preview while keeping
// formatting, inline styles and cid:/data: images.
func SanitizeHTML(s string) string {
	initPolicies()
	return previewPolicy.Sanitize(s)
}

// SanitizeHTMLCustom applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}
