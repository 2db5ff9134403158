package render

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// buttonNode is a call-to-action link written as [!button|Label](url).
type buttonNode struct {
	ast.BaseInline
	URL   []byte
	Label []byte
}

var kindButton = ast.NewNodeKind("Button")

func (n *buttonNode) Kind() ast.NodeKind { return kindButton }

func (n *buttonNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"URL": string(n.URL), "Label": string(n.Label)}, nil)
}

var buttonPrefix = []byte("[!button|")

type buttonParser struct{}

func (p *buttonParser) Trigger() []byte { return []byte{'['} }

func (p *buttonParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, buttonPrefix) {
		return nil
	}

	rest := line[len(buttonPrefix):]
	labelEnd := bytes.IndexByte(rest, ']')
	if labelEnd < 0 || labelEnd+1 >= len(rest) || rest[labelEnd+1] != '(' {
		return nil
	}
	urlPart := rest[labelEnd+2:]
	urlEnd := bytes.IndexByte(urlPart, ')')
	if urlEnd < 0 {
		return nil
	}

	block.Advance(len(buttonPrefix) + labelEnd + 2 + urlEnd + 1)
	return &buttonNode{
		Label: bytes.TrimSpace(rest[:labelEnd]),
		URL:   bytes.TrimSpace(urlPart[:urlEnd]),
	}
}

const buttonStyle = "display:inline-block;background:#414141;color:#ffffff;font-size:13px;line-height:120%;padding:10px 25px;border-radius:3px;text-decoration:none;"

type buttonRenderer struct{}

func (r *buttonRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindButton, r.render)
}

func (r *buttonRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*buttonNode)

	// Token values arrive HTML-escaped already.
	url := []byte(html.UnescapeString(string(n.URL)))
	label := util.EscapeHTML([]byte(html.UnescapeString(string(n.Label))))

	if gmhtml.IsDangerousURL(url) {
		_, _ = w.Write(label)
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(url, false)))
	_, _ = w.WriteString(`" target="_blank" style="` + buttonStyle + `">`)
	_, _ = w.Write(label)
	_, _ = w.WriteString(`</a>`)
	return ast.WalkContinue, nil
}

type buttonExtension struct{}

func (e *buttonExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(util.Prioritized(&buttonParser{}, 50)))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(&buttonRenderer{}, 50)))
}
