package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</tr>|</li>|</h[1-6]>|</div>`)
	cellPattern      = regexp.MustCompile(`(?i)</t[dh]>`)
	spacePattern     = regexp.MustCompile(`[ \t\r\f\v]+`)
	hiddenPattern    = regexp.MustCompile(`(?i)display\s*:\s*none`)
)

// plainText strips markup from content, keeping paragraph and row breaks.
func plainText(content string) string {
	s := lineBreakPattern.ReplaceAllString(content, "\n")
	s = cellPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(strictPolicy.Sanitize(s))

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// hasBody reports whether the markup declares an mj-body element.
func hasBody(markup string) bool {
	z := nethtml.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return false
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "mj-body" {
				return true
			}
		}
	}
}

// extract returns the document title and a plain text rendition of the
// visible body of compiled HTML. The hidden preview line is left out.
func extract(document string) (title, text string) {
	root, err := nethtml.Parse(strings.NewReader(document))
	if err != nil {
		return "", ""
	}

	var body *nethtml.Node
	var walk func(n *nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Body:
				body = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if body == nil {
		return title, ""
	}
	prune(body)

	var b strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := nethtml.Render(&b, c); err != nil {
			return title, ""
		}
	}
	return title, plainText(b.String())
}

// prune drops nodes that never show up in a mail client.
func prune(n *nethtml.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == nethtml.CommentNode,
			c.Type == nethtml.ElementNode && (c.DataAtom == atom.Style || c.DataAtom == atom.Script),
			c.Type == nethtml.ElementNode && hidden(c):
			n.RemoveChild(c)
		default:
			prune(c)
		}
		c = next
	}
}

func hidden(n *nethtml.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "style" && hiddenPattern.MatchString(a.Val) {
			return true
		}
	}
	return false
}
