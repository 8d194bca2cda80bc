package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option configures Make.
type Option func(*options)

type options struct {
	replacements map[string]string
	separator    string
	maxLength    int
	lowercase    bool
}

// Separator sets the string placed between words. Default "-".
func Separator(sep string) Option {
	return func(o *options) { o.separator = sep }
}

// MaxLength limits the slug to n runes. Zero or negative means unlimited.
func MaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// Lowercase controls case folding. Default true.
func Lowercase(v bool) Option {
	return func(o *options) { o.lowercase = v }
}

// CustomReplace applies literal replacements before slugification.
func CustomReplace(m map[string]string) Option {
	return func(o *options) { o.replacements = m }
}

// Letters that do not decompose into base + combining mark.
var foldTable = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "AE", 'œ': "oe", 'Œ': "OE",
	'ø': "o", 'Ø': "O", 'đ': "d", 'Đ': "D", 'ł': "l", 'Ł': "L", 'þ': "th", 'Þ': "TH",
}

// Make returns the slug of s.
func Make(s string, opts ...Option) string {
	o := options{separator: "-", lowercase: true}
	for _, opt := range opts {
		opt(&o)
	}

	for from, to := range o.replacements {
		s = strings.ReplaceAll(s, from, " "+to+" ")
	}

	s = fold(s)

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteString(o.separator)
			pending = false
		}
		if o.lowercase {
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}

	out := b.String()
	if o.maxLength > 0 {
		if rs := []rune(out); len(rs) > o.maxLength {
			out = string(rs[:o.maxLength])
			if o.separator != "" {
				out = strings.TrimRight(out, o.separator)
			}
		}
	}
	return out
}

func fold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if rep, ok := foldTable[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, b.String())
	if err != nil {
		return b.String()
	}
	return out
}
