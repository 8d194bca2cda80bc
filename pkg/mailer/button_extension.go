package mailer

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindButton is the node kind for ButtonNode.
var KindButton = ast.NewNodeKind("Button")

// ButtonNode is a call-to-action link written as [!button|Label](URL).
type ButtonNode struct {
	ast.BaseInline
	URL   []byte
	Label []byte
}

// Kind implements ast.Node.
func (n *ButtonNode) Kind() ast.NodeKind { return KindButton }

// Dump implements ast.Node.
func (n *ButtonNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"URL":   string(n.URL),
		"Label": string(n.Label),
	}, nil)
}

var buttonPrefix = []byte("[!button|")

type buttonParser struct{}

func (buttonParser) Trigger() []byte { return []byte{'['} }

func (buttonParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	rest, ok := bytes.CutPrefix(line, buttonPrefix)
	if !ok {
		return nil
	}

	label, rest, ok := bytes.Cut(rest, []byte("]("))
	if !ok || bytes.ContainsRune(label, ']') {
		return nil
	}
	url, _, ok := bytes.Cut(rest, []byte(")"))
	if !ok {
		return nil
	}

	block.Advance(len(buttonPrefix) + len(label) + 2 + len(url) + 1)
	return &ButtonNode{URL: url, Label: label}
}

// ButtonStyle controls the colours of rendered buttons.
type ButtonStyle struct {
	Background string
	Color      string
}

// DefaultButtonStyle is used when NewButtonExtension gets no style.
var DefaultButtonStyle = ButtonStyle{Background: "#0b5cad", Color: "#ffffff"}

type buttonRenderer struct {
	style ButtonStyle
}

func (r *buttonRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindButton, r.render)
}

// render emits a single-cell table so the button keeps its padding and
// background in Outlook, which ignores both on bare anchors.
func (r *buttonRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ButtonNode)

	bg := util.EscapeHTML([]byte(r.style.Background))
	fg := util.EscapeHTML([]byte(r.style.Color))

	_, _ = w.WriteString(`<table role="presentation" class="btn" cellspacing="0" cellpadding="0" border="0"><tr><td style="border-radius:4px;background:`)
	_, _ = w.Write(bg)
	_, _ = w.WriteString(`;"><a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.URL, false)))
	_, _ = w.WriteString(`" style="display:inline-block;padding:10px 20px;text-decoration:none;color:`)
	_, _ = w.Write(fg)
	_, _ = w.WriteString(`;">`)
	_, _ = w.Write(util.EscapeHTML(n.Label))
	_, _ = w.WriteString(`</a></td></tr></table>`)
	return ast.WalkContinue, nil
}

type buttonExtension struct {
	style ButtonStyle
}

func (e *buttonExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(buttonParser{}, 50),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&buttonRenderer{style: e.style}, 50),
	))
}

// NewButtonExtension returns a goldmark extension rendering
// [!button|Label](URL) as an email-safe button. The first style given, if
// any, overrides DefaultButtonStyle.
func NewButtonExtension(style ...ButtonStyle) goldmark.Extender {
	s := DefaultButtonStyle
	if len(style) > 0 {
		s = style[0]
	}
	return &buttonExtension{style: s}
}
